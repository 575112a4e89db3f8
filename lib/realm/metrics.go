package realm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maat_challenges_received",
		Help: "The total number of challenges handed to realm handlers",
	}, []string{"realm"})

	challengesQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maat_challenges_queued",
		Help: "The total number of contenders queued behind an active challenge",
	}, []string{"realm"})

	realmOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maat_realm_outcomes",
		Help: "Outcomes reported to realm handlers",
	}, []string{"realm", "outcome"})
)
