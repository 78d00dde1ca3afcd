package addrmgr

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const numShards = 16

type shard struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// Store is the concrete, sharded implementation of Manager (§4.1). It
// shards its index by hash of the Peer Address so mutating operations on
// distinct addresses can proceed in parallel, and so read operations
// (GoodSample, SnapshotStats) never block the Crawler's write path for
// long — each shard's RWMutex is held only for the duration of one
// operation, never across a suspension point (§5).
type Store struct {
	shards      [numShards]*shard
	defaultPort uint16
	tuning      Tuning
	clk         clock.Clock
	log         *zap.Logger
	persist     *persistence
}

// New constructs an empty Store. defaultPort is the network's canonical P2P
// port, used to enforce I4 at MarkSuccess time.
func New(defaultPort uint16, tuning Tuning, clk clock.Clock, log *zap.Logger, p *persistence) *Store {
	s := &Store{
		defaultPort: defaultPort,
		tuning:      tuning,
		clk:         clk,
		log:         log,
		persist:     p,
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*Record)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%numShards]
}

// AddOrMerge implements §4.1's add_or_merge. Sanitation rejections never
// mutate state and are counted, never surfaced as an error (P7).
func (s *Store) AddOrMerge(a Addr, meta SourceMetadata) RejectReason {
	if reason := Sanitize(a); reason != RejectNone {
		sanitizeRejects.WithLabelValues(reason.String()).Inc()
		return reason
	}

	now := s.clk.Now()
	key := a.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	existing, ok := sh.records[key]
	if !ok {
		sh.records[key] = &Record{
			Address:      a,
			SubnetworkID: SubnetworkUnknown,
			FirstSeen:    now,
			IsKnownPeer:  meta.IsKnownPeer,
		}
		return RejectNone
	}

	// Merge rule: earlier first_seen wins (it already holds the earlier
	// value so nothing to do); is_known_peer is monotonically sticky.
	if meta.IsKnownPeer {
		existing.IsKnownPeer = true
	}
	return RejectNone
}

// SeedKnownPeer adds an operator-configured known peer and pre-marks it as
// already successful at now, per §4.3 step 2, so it participates in DNS
// answers and crawling immediately.
func (s *Store) SeedKnownPeer(a Addr) RejectReason {
	reason := s.AddOrMerge(a, SourceMetadata{IsKnownPeer: true})
	if reason != RejectNone {
		return reason
	}
	s.markSuccessAt(a, s.clk.Now(), 0, "", SubnetworkUnknown)

	// The pre-mark is not a probe attempt: leave LastAttempt unset so the
	// next SelectForProbe picks the record up as never attempted.
	key := a.Key()
	sh := s.shardFor(key)
	sh.mu.Lock()
	if r, ok := sh.records[key]; ok {
		r.LastAttempt = time.Time{}
	}
	sh.mu.Unlock()
	return RejectNone
}

// MarkSuccess implements §4.1's mark_success.
func (s *Store) MarkSuccess(a Addr, protocolVersion uint32, userAgent, subnetworkID string) {
	s.markSuccessAt(a, s.clk.Now(), protocolVersion, userAgent, subnetworkID)
}

func (s *Store) markSuccessAt(a Addr, now time.Time, protocolVersion uint32, userAgent, subnetworkID string) {
	key := a.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, ok := sh.records[key]
	if !ok {
		return
	}
	r.LastAttempt = now
	r.LastSuccess = now
	r.AttemptsSinceSuccess = 0
	r.ProtocolVersion = protocolVersion
	if userAgent != "" {
		r.UserAgent = userAgent
	}
	if subnetworkID != "" {
		r.SubnetworkID = subnetworkID
	}
	// I4: only a handshake on the network's default P2P port can ever
	// promote a record to Good.
	r.lastSuccessOnDefaultPort = a.Port == s.defaultPort
}

// MarkFailure implements §4.1's mark_failure.
func (s *Store) MarkFailure(a Addr) {
	key := a.Key()
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, ok := sh.records[key]
	if !ok {
		return
	}
	r.LastAttempt = s.clk.Now()
	r.AttemptsSinceSuccess++
}

// SnapshotStats implements §4.1's snapshot_stats.
func (s *Store) SnapshotStats() Stats {
	now := s.clk.Now()
	var st Stats
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.records {
			switch r.DerivedState(now, s.tuning) {
			case StateGood:
				st.Good++
			case StateStale:
				st.Stale++
			case StateBad:
				st.Bad++
			case StateNew:
				st.New++
			}
		}
		sh.mu.RUnlock()
	}
	recordsByState.WithLabelValues("good").Set(float64(st.Good))
	recordsByState.WithLabelValues("stale").Set(float64(st.Stale))
	recordsByState.WithLabelValues("bad").Set(float64(st.Bad))
	recordsByState.WithLabelValues("new").Set(float64(st.New))
	return st
}

// snapshotAll copies every record under brief per-shard locks, for use by
// persistence. No lock is held across a suspension point;
// each shard's copy happens, then its lock releases, before the next shard
// is touched (§5 ordering guarantees).
func (s *Store) snapshotAll() []*Record {
	out := make([]*Record, 0, 256)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.records {
			out = append(out, r.clone())
		}
		sh.mu.RUnlock()
	}
	return out
}
