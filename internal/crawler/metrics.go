package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "crawler",
		Name:      "probe_outcomes_total",
		Help:      "Probe outcomes by verdict.",
	}, []string{"outcome"})

	harvestedAddresses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "crawler",
		Name:      "harvested_addresses_total",
		Help:      "Addresses harvested from successful handshakes and merged into the store.",
	})

	prefixDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "crawler",
		Name:      "prefix_rate_limited_total",
		Help:      "Candidates skipped this cycle due to same-prefix back-off.",
	})
)
