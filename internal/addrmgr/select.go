package addrmgr

import (
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

// band classifies a record into the cooldown table of §4.1.
type band int

const (
	bandGood band = iota
	bandStale
	bandNewOrBad
)

func bandFor(st State) band {
	switch st {
	case StateGood:
		return bandGood
	case StateStale:
		return bandStale
	default:
		return bandNewOrBad
	}
}

// priorityGroup implements the preference order of §4.1 step 2: never
// attempted first, then Stale (to confirm loss), then everything else by
// ascending last_attempt.
type priorityGroup int

const (
	groupNeverAttempted priorityGroup = iota
	groupStale
	groupOther
)

type candidate struct {
	addr        Addr
	group       priorityGroup
	lastAttempt time.Time
}

// SelectForProbe implements §4.1's select_for_probe.
func (s *Store) SelectForProbe(n int) []Addr {
	if n <= 0 {
		return nil
	}
	now := s.clk.Now()
	goodCooldown, staleCooldown, cheapCooldown := CooldownBands()

	var candidates []candidate
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.records {
			st := r.DerivedState(now, s.tuning)
			var cooldown time.Duration
			switch bandFor(st) {
			case bandGood:
				cooldown = goodCooldown
			case bandStale:
				cooldown = staleCooldown
			default:
				cooldown = cheapCooldown
			}

			neverAttempted := r.LastAttempt.IsZero()
			if !neverAttempted && now.Sub(r.LastAttempt) < cooldown {
				continue // still in cooldown
			}

			group := groupOther
			switch {
			case neverAttempted:
				group = groupNeverAttempted
			case st == StateStale:
				group = groupStale
			}
			candidates = append(candidates, candidate{
				addr:        r.Address,
				group:       group,
				lastAttempt: r.LastAttempt,
			})
		}
		sh.mu.RUnlock()
	}

	// Randomize first so ties (same group, same last_attempt — most
	// commonly the whole never-attempted group, whose last_attempt is
	// always the zero value) break randomly, then stable-sort imposes
	// the deterministic part of the ordering.
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].group != candidates[j].group {
			return candidates[i].group < candidates[j].group
		}
		return candidates[i].lastAttempt.Before(candidates[j].lastAttempt)
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]Addr, len(candidates))
	for i, c := range candidates {
		out[i] = c.addr
	}
	return out
}

// GoodSample implements §4.1's good_sample, with the subnetwork filter
// needed by the DNS responder's subnetwork-ID prefix (§4.5). Pass an empty
// subnetworkFilter for no filtering.
func (s *Store) GoodSample(max int, family Family, subnetworkFilter string) []Addr {
	if max <= 0 {
		return nil
	}
	now := s.clk.Now()

	var pool []Addr
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.records {
			if r.DerivedState(now, s.tuning) != StateGood {
				continue
			}
			isV4 := r.Address.IsIPv4()
			if (family == FamilyV4) != isV4 {
				continue
			}
			if subnetworkFilter != "" && r.SubnetworkID != subnetworkFilter {
				continue
			}
			pool = append(pool, r.Address)
		}
		sh.mu.RUnlock()
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > max {
		pool = pool[:max]
	}
	return pool
}

// RetireSweep implements §4.1's retire_sweep: removes Bad records past
// stale_bad_timeout, and any record that now fails sanitation
// retroactively (e.g. its source network range was reclassified).
func (s *Store) RetireSweep() {
	now := s.clk.Now()
	var removed int
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, r := range sh.records {
			if Sanitize(r.Address) != RejectNone {
				delete(sh.records, key)
				removed++
				continue
			}
			if r.DerivedState(now, s.tuning) == StateBad &&
				!r.LastAttempt.IsZero() && now.Sub(r.LastAttempt) > s.tuning.StaleBadTimeout {
				delete(sh.records, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if s.log != nil && removed > 0 {
		s.log.Debug("retire sweep removed records", zap.Int("removed", removed))
	}
}
