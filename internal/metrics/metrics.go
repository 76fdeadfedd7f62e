package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	DriftChecks    Counter
	SoftDrifts     Counter
	HardDrifts     Counter
	GuardBlocks    Counter
	SignalsAllowed Counter
	SignalsBlocked Counter

	TradingAllowed Gauge
	UnifiedHealth  Gauge
	DataBusHealth  Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	c := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		DriftChecks:    c,
		SoftDrifts:     c,
		HardDrifts:     c,
		GuardBlocks:    c,
		SignalsAllowed: c,
		SignalsBlocked: c,
		TradingAllowed: g,
		UnifiedHealth:  g,
		DataBusHealth:  g,
	}
}
