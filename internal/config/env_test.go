package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestLoadEnvParsesAndSkipsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := `
# comment
TG_TEST_A=one
export TG_TEST_B="two"
TG_TEST_C='three'
TG_TEST_EXISTING=file-value
not-a-pair
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TG_TEST_EXISTING", "process-value")
	for _, key := range []string{"TG_TEST_A", "TG_TEST_B", "TG_TEST_C"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("TG_TEST_A"); got != "one" {
		t.Fatalf("TG_TEST_A = %q", got)
	}
	if got := os.Getenv("TG_TEST_B"); got != "two" {
		t.Fatalf("quotes should be stripped, got %q", got)
	}
	if got := os.Getenv("TG_TEST_C"); got != "three" {
		t.Fatalf("single quotes should be stripped, got %q", got)
	}
	if got := os.Getenv("TG_TEST_EXISTING"); got != "process-value" {
		t.Fatalf("existing variable should win, got %q", got)
	}
}

func TestParseEnvLine(t *testing.T) {
	if _, _, ok := parseEnvLine("# comment"); ok {
		t.Fatalf("comment should not parse")
	}
	if _, _, ok := parseEnvLine("   "); ok {
		t.Fatalf("blank should not parse")
	}
	key, val, ok := parseEnvLine("export FOO=bar")
	if !ok || key != "FOO" || val != "bar" {
		t.Fatalf("got %q=%q ok=%v", key, val, ok)
	}
}
