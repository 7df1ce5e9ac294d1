package savior

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes savior sizes. A nil *Metrics records nothing.
type Metrics struct {
	presenters prometheus.Gauge
	scopes     prometheus.Gauge
	recovers   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		presenters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anchor",
			Subsystem: "savior",
			Name:      "presenters",
			Help:      "Presenters currently held by the savior.",
		}),
		scopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anchor",
			Subsystem: "savior",
			Name:      "scopes",
			Help:      "Host scopes currently tracked by the savior.",
		}),
		recovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "savior",
			Name:      "recover_total",
			Help:      "Recover calls by result (hit or miss).",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.presenters, err = register(reg, m.presenters)
	if err != nil {
		return nil, err
	}
	m.scopes, err = register(reg, m.scopes)
	if err != nil {
		return nil, err
	}
	m.recovers, err = register(reg, m.recovers)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) setPresenters(n int) {
	if m == nil {
		return
	}
	m.presenters.Set(float64(n))
}

func (m *Metrics) setScopes(n int) {
	if m == nil {
		return
	}
	m.scopes.Set(float64(n))
}

func (m *Metrics) recovered(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.recovers.WithLabelValues(result).Inc()
}
