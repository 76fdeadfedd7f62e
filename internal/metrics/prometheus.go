package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "trade_guard"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(g)
		return g
	}

	m := &Metrics{
		DriftChecks:    promCounter{counter("drift_checks_total", "Total number of drift evaluations.")},
		SoftDrifts:     promCounter{counter("soft_drifts_total", "Total number of SOFT drift records observed.")},
		HardDrifts:     promCounter{counter("hard_drifts_total", "Total number of HARD drift records observed.")},
		GuardBlocks:    promCounter{counter("guard_blocks_total", "Total number of evaluations where the testnet guard failed.")},
		SignalsAllowed: promCounter{counter("signals_allowed_total", "Total number of signals admitted by the gate.")},
		SignalsBlocked: promCounter{counter("signals_blocked_total", "Total number of signals rejected by the gate.")},
		TradingAllowed: promGauge{gauge("trading_allowed", "1 when the combined decision permits trading, else 0.")},
		UnifiedHealth:  promGauge{gauge("unified_feed_health", "Unified feed health: 0 OK, 1 YELLOW, 2 RED, 3 UNKNOWN.")},
		DataBusHealth:  promGauge{gauge("databus_feed_health", "Data-bus feed health: 0 OK, 1 YELLOW, 2 RED, 3 UNKNOWN.")},
	}

	return &Prometheus{Metrics: m, registry: registry}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
