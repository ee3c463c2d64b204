package presence

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes connection health to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	state      *prometheus.GaugeVec
	dials      prometheus.Counter
	reconnects prometheus.Counter
	messages   *prometheus.CounterVec
	heartbeats prometheus.Counter
}

// NewMetrics allocates the collectors. Call Register to expose them.
func NewMetrics(labels prometheus.Labels) *Metrics {
	return &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "linkhub",
			Subsystem:   "presence",
			Name:        "connection_state",
			Help:        "1 for the current presence connection state, 0 otherwise.",
			ConstLabels: labels,
		}, []string{"state"}),
		dials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "linkhub",
			Subsystem:   "presence",
			Name:        "dials_total",
			Help:        "Connection attempts to the presence service.",
			ConstLabels: labels,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "linkhub",
			Subsystem:   "presence",
			Name:        "reconnects_scheduled_total",
			Help:        "Reconnects scheduled after an abnormal closure.",
			ConstLabels: labels,
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "linkhub",
			Subsystem:   "presence",
			Name:        "messages_total",
			Help:        "Inbound socket frames by classification.",
			ConstLabels: labels,
		}, []string{"kind"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "linkhub",
			Subsystem:   "presence",
			Name:        "heartbeats_sent_total",
			Help:        "Heartbeat acks sent to the presence service.",
			ConstLabels: labels,
		}),
	}
}

// Register adds every collector to r.
func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.state, m.dials, m.reconnects, m.messages, m.heartbeats)
}

func (m *Metrics) setState(s ConnState) {
	if m == nil {
		return
	}
	for _, each := range allConnStates {
		v := 0.0
		if each == s {
			v = 1
		}
		m.state.WithLabelValues(each.String()).Set(v)
	}
}

func (m *Metrics) dialed() {
	if m != nil {
		m.dials.Inc()
	}
}

func (m *Metrics) reconnectScheduled() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *Metrics) message(kind string) {
	if m != nil {
		m.messages.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) heartbeatSent() {
	if m != nil {
		m.heartbeats.Inc()
	}
}
