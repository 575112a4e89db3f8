package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "maat_transport_latency_seconds",
	Help:    "The time taken for the authorization backend to answer a request",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 60, 16),
}, []string{"method"})
