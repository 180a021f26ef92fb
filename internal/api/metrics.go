package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	signed   prometheus.Counter
	unsigned prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "liqrun_session_requests_total",
			Help: "Session protocol requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "liqrun_session_request_seconds",
			Help:    "Session protocol handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		signed: f.NewCounter(prometheus.CounterOpts{
			Name: "liqrun_scores_signed_total",
			Help: "Finished runs that received a score authorization.",
		}),
		unsigned: f.NewCounter(prometheus.CounterOpts{
			Name: "liqrun_scores_unsigned_total",
			Help: "Finished runs answered with elapsed time only.",
		}),
	}
}

func (m *metrics) observe(op string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errorClass(err)
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
