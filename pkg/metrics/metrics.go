package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PgErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icscal",
		Subsystem: "pg",
		Name:      "pg_err_count",
	}, []string{"method"})
	PgDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icscal",
		Subsystem: "pg",
		Name:      "pg_duration",
	}, []string{"method"})
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "icscal",
		Subsystem: "cyu",
		Name:      "request_duration",
	}, []string{"method"})
	UpstreamErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icscal",
		Subsystem: "cyu",
		Name:      "request_err_count",
	}, []string{"method"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icscal",
		Subsystem: "http",
		Name:      "requests_total",
	}, []string{"route", "status"})
	TokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "icscal",
		Subsystem: "worker",
		Name:      "tokens_swept_total",
	})
)
