package addrmgr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the counters neo-go's network stack and the ipfs-crawler
// example export via prometheus/client_golang, wired to the optional
// `profile` HTTP endpoint (§6).
var (
	sanitizeRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "addrmgr",
		Name:      "sanitize_rejects_total",
		Help:      "Addresses rejected by sanitation, by reason.",
	}, []string{"reason"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "addrmgr",
		Name:      "persist_failures_total",
		Help:      "Failed attempts to write the peers file.",
	})

	loadCorruptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsseeder",
		Subsystem: "addrmgr",
		Name:      "load_corruptions_total",
		Help:      "Times the peers file was found corrupt on load and discarded.",
	})

	recordsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dnsseeder",
		Subsystem: "addrmgr",
		Name:      "records",
		Help:      "Current record count by derived state.",
	}, []string{"state"})
)
