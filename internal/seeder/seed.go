// Package seeder implements Seed Discovery (§4.4): resolving a small,
// fixed, network-dependent list of external hostnames into initial Peer
// Addresses.
package seeder

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/netparams"
)

// Resolver is the subset of net.Resolver this package depends on, so tests
// can substitute a fake resolver instead of hitting the real OS resolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// queryTimeout bounds a single hostname's A+AAAA lookup.
const queryTimeout = 5 * time.Second

// prodSeedInterval is how often Seed Discovery re-runs after its initial
// pass, "hours scale" per §4.4.
const prodSeedInterval = 6 * time.Hour

// Interval returns the configured re-run interval, dev-mode scaled.
func Interval() time.Duration {
	if netparams.DevMode {
		return prodSeedInterval / 10
	}
	return prodSeedInterval
}

// Seeder resolves params.DNSSeeds into addresses and merges them into mgr.
type Seeder struct {
	mgr      addrmgr.Manager
	resolver Resolver
	params   netparams.Params
	log      *zap.Logger
}

// New constructs a Seeder.
func New(mgr addrmgr.Manager, resolver Resolver, params netparams.Params, log *zap.Logger) *Seeder {
	return &Seeder{mgr: mgr, resolver: resolver, params: params, log: log}
}

// Run resolves every configured seed hostname and merges the results into
// the Store, pairing each resolved IP with the network's default P2P port.
// Partial failure (one hostname fails, others succeed) is a normal outcome,
// never an error returned to the caller (§4.4).
func (s *Seeder) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for _, host := range s.params.DNSSeeds {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()

			lookupCtx, cancel := context.WithTimeout(ctx, queryTimeout)
			defer cancel()

			ipAddrs, err := s.resolver.LookupIPAddr(lookupCtx, host)
			if err != nil {
				if s.log != nil {
					s.log.Info("dns seed lookup failed", zap.String("host", host), zap.Error(err))
				}
				return
			}

			merged := 0
			for _, ipAddr := range ipAddrs {
				a := addrmgr.NewAddr(ipAddr.IP, s.params.DefaultPort)
				if reason := s.mgr.AddOrMerge(a, addrmgr.SourceMetadata{}); reason == addrmgr.RejectNone {
					merged++
				}
			}

			mu.Lock()
			total += merged
			mu.Unlock()

			if s.log != nil {
				s.log.Info("dns seed resolved", zap.String("host", host), zap.Int("addresses", len(ipAddrs)), zap.Int("merged", merged))
			}
		}(host)
	}
	wg.Wait()

	if s.log != nil {
		s.log.Info("seed discovery pass complete", zap.Int("total_merged", total))
	}
	return nil
}

// RunPeriodically calls Run once immediately, then every Interval() until
// ctx is cancelled. Intended to be started as its own goroutine from
// main().
func (s *Seeder) RunPeriodically(ctx context.Context) {
	_ = s.Run(ctx)

	ticker := time.NewTicker(Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Run(ctx)
		}
	}
}
