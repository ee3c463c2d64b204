package app

import "github.com/prometheus/client_golang/prometheus"

// httpMetrics counts redirect traffic. Slug labels are bounded by the
// configured table; misses share one counter.
type httpMetrics struct {
	redirects *prometheus.CounterVec
	notFound  prometheus.Counter
}

func newHTTPMetrics() *httpMetrics {
	return &httpMetrics{
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkhub",
			Name:      "redirects_total",
			Help:      "Redirects served, by slug.",
		}, []string{"slug"}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linkhub",
			Name:      "not_found_total",
			Help:      "Requests for unknown slugs or paths.",
		}),
	}
}

func (m *httpMetrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.redirects, m.notFound)
}
