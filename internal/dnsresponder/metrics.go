package dnsresponder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queriesByRcode = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dnsseeder",
	Subsystem: "dns",
	Name:      "queries_total",
	Help:      "Queries handled, by response RCODE and query type.",
}, []string{"rcode", "qtype"})
