package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"trade-guard/internal/baseline"
	"trade-guard/internal/config"
	"trade-guard/internal/drift"
	"trade-guard/internal/envkey"
	"trade-guard/internal/guard"
	"trade-guard/internal/logging"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	commit := flag.Bool("commit", false, "commit the current environment as the new baseline")
	show := flag.Bool("show", false, "print the committed baseline")
	diff := flag.Bool("diff", false, "diff the current environment against the baseline")
	force := flag.Bool("force", false, "commit even in live mode or over HARD drift")
	source := flag.String("source", "manual", "source label recorded in the baseline")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	store := baseline.NewStore(cfg.Baseline.Path, cfg.Baseline.BackupDir, log)

	switch {
	case *show:
		os.Exit(runShow(store))
	case *diff:
		os.Exit(runDiff(cfg, store))
	case *commit:
		os.Exit(runCommit(cfg, store, *source, *force))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runShow(store *baseline.Store) int {
	b, err := store.Load()
	if errors.Is(err, baseline.ErrNotFound) {
		fmt.Println("no baseline committed")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load baseline: %v\n", err)
		return 1
	}
	fmt.Printf("baseline committed %s (source: %s), %d keys\n",
		b.CreatedAt.Format(time.RFC3339), b.Source, len(b.Keys))
	keys := make([]string, 0, len(b.Keys))
	for k := range b.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-32s %s\n", k, b.Keys[k])
	}
	return 0
}

func runDiff(cfg *config.Config, store *baseline.Store) int {
	records, mode, err := currentDrift(cfg, store)
	if errors.Is(err, baseline.ErrNotFound) {
		fmt.Println("no baseline committed; drift check cannot run")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "diff: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Printf("no drift (mode: %s)\n", mode)
		return 0
	}
	fmt.Printf("%d drifted key(s) (mode: %s):\n", len(records), mode)
	for _, r := range records {
		fmt.Printf("  [%s] %s %s: %s -> %s\n", r.Severity, r.Kind, r.Key, r.Old, r.New)
	}
	if drift.OverallVerdict(records) == drift.VerdictBlock {
		return 1
	}
	return 0
}

func runCommit(cfg *config.Config, store *baseline.Store, source string, force bool) int {
	env := envkey.Capture()
	mode := guard.CurrentMode(env)

	// Re-baselining legitimizes whatever the environment currently holds, so
	// it is refused when the current state would itself block trading.
	if !force {
		if mode == guard.ModeLive {
			fmt.Fprintln(os.Stderr, "refusing to commit baseline in LIVE mode; use -force to override")
			return 1
		}
		records, _, err := currentDrift(cfg, store)
		if err != nil && !errors.Is(err, baseline.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "pre-commit drift check: %v\n", err)
			return 1
		}
		if err == nil && drift.OverallVerdict(records) == drift.VerdictBlock {
			fmt.Fprintln(os.Stderr, "refusing to commit over HARD drift; review the diff or use -force")
			for _, r := range records {
				if r.Severity == drift.SeverityHard {
					fmt.Fprintf(os.Stderr, "  [%s] %s %s\n", r.Severity, r.Kind, r.Key)
				}
			}
			return 1
		}
	}

	b, err := store.Commit(env.Filter(cfg.Guard.TrackedKeys), source, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "commit baseline: %v\n", err)
		return 1
	}
	fmt.Printf("baseline committed: %d keys (source: %s, mode: %s)\n", len(b.Keys), b.Source, mode)
	return 0
}

func currentDrift(cfg *config.Config, store *baseline.Store) ([]drift.Classified, guard.Mode, error) {
	env := envkey.Capture()
	mode := guard.CurrentMode(env)
	b, err := store.Load()
	if err != nil {
		return nil, mode, err
	}
	records := baseline.Diff(b, env.Filter(cfg.Guard.TrackedKeys), time.Now())
	critical := drift.NewCriticalSet(cfg.Guard.CriticalKeys)
	return drift.Classify(records, mode, critical), mode, nil
}
