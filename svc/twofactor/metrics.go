package twofactor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts two-factor outcomes. A nil *Metrics records nothing.
type Metrics struct {
	verifications *prometheus.CounterVec
	enablements   prometheus.Counter
	disablements  prometheus.Counter
	redemptions   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg, or on the
// default registerer when reg is nil. Collectors already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rafiki",
			Subsystem: "twofactor",
			Name:      "verifications_total",
			Help:      "TOTP code checks by purpose and result.",
		}, []string{"purpose", "result"}),
		enablements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rafiki",
			Subsystem: "twofactor",
			Name:      "enablements_total",
			Help:      "Accounts that turned on two-factor authentication.",
		}),
		disablements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rafiki",
			Subsystem: "twofactor",
			Name:      "disablements_total",
			Help:      "Accounts that turned off two-factor authentication.",
		}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rafiki",
			Subsystem: "twofactor",
			Name:      "backup_redemptions_total",
			Help:      "Backup code redemptions by result.",
		}, []string{"result"}),
	}

	var err error
	if m.verifications, err = register(reg, m.verifications); err != nil {
		return nil, err
	}
	if m.enablements, err = register(reg, m.enablements); err != nil {
		return nil, err
	}
	if m.disablements, err = register(reg, m.disablements); err != nil {
		return nil, err
	}
	if m.redemptions, err = register(reg, m.redemptions); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *Metrics) verification(purpose string, ok bool) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(purpose, result(ok)).Inc()
}

func (m *Metrics) enabled() {
	if m == nil {
		return
	}
	m.enablements.Inc()
}

func (m *Metrics) disabled() {
	if m == nil {
		return
	}
	m.disablements.Inc()
}

func (m *Metrics) redemption(ok bool) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result(ok)).Inc()
}
