package addrmgr

// Family selects an IP address family for sampling.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

// SourceMetadata carries the provenance of an address being merged into
// the Store.
type SourceMetadata struct {
	// IsKnownPeer marks this address as operator-configured. The flag is
	// monotonically sticky across merges (§3).
	IsKnownPeer bool
}

// Stats is the (good, stale, bad, new) count tuple §4.1's snapshot_stats
// returns.
type Stats struct {
	Good, Stale, Bad, New int
}

// Manager is the interface the Crawler, DNS Responder, and inspection API
// depend on instead of the concrete Store, so tests can substitute an
// in-memory fake (§9 "Dynamic dispatch on the address manager").
type Manager interface {
	AddOrMerge(a Addr, meta SourceMetadata) RejectReason
	SeedKnownPeer(a Addr) RejectReason
	MarkSuccess(a Addr, protocolVersion uint32, userAgent, subnetworkID string)
	MarkFailure(a Addr)
	SelectForProbe(n int) []Addr
	GoodSample(max int, family Family, subnetworkFilter string) []Addr
	SnapshotStats() Stats
	RetireSweep()
	Persist() error
	Load() error
}
