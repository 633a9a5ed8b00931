package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsAllowed prometheus.Counter
	RequestsBlocked prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pageguard_ratelimit_requests_allowed_total",
			Help: "Total number of scan submissions admitted under the rate limit",
		}),
		RequestsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pageguard_ratelimit_requests_blocked_total",
			Help: "Total number of scan submissions rejected by the rate limit",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	m.RequestsAllowed.Inc()
}

func (m *Metrics) IncrementBlocked() {
	m.RequestsBlocked.Inc()
}
