package authreq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maat_requests_sent",
		Help: "The total number of requests handed to the transport",
	}, []string{"method"})

	requestsResent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maat_requests_resent",
		Help: "The total number of requests replayed after every challenge was answered",
	})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maat_request_failures",
		Help: "The total number of requests that ended in failure",
	}, []string{"kind"})
)
