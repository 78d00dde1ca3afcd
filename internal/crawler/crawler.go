// Package crawler drives the discovery loop: it selects addresses from the
// Store, dispatches them to a bounded worker pool that runs the Probe, and
// feeds verdicts back (§4.3).
package crawler

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/probe"
)

// SeedFunc triggers one run of Seed Discovery; the Crawler calls it once,
// synchronously, during initialization (§4.3 step 1).
type SeedFunc func(ctx context.Context) error

// Config bundles the Crawler's own tunables.
type Config struct {
	// Threads is the configured worker count, bounded 1-32 by the config
	// loader before it ever reaches here.
	Threads int

	SeedTimeout time.Duration
}

// Crawler is the scheduler of §4.3.
type Crawler struct {
	mgr    addrmgr.Manager
	prober probe.Prober
	cfg    Config
	clk    clock.Clock
	log    *zap.Logger

	prefixMu        sync.Mutex
	prefixLastProbe map[string]time.Time
}

// New constructs a Crawler.
func New(mgr addrmgr.Manager, prober probe.Prober, cfg Config, clk clock.Clock, log *zap.Logger) *Crawler {
	return &Crawler{
		mgr:             mgr,
		prober:          prober,
		cfg:             cfg,
		clk:             clk,
		log:             log,
		prefixLastProbe: make(map[string]time.Time),
	}
}

// Run performs §4.3's initialization (seed once, add known peers) and then
// drives the worker loop until ctx is cancelled. On cancellation, in-flight
// probes complete under their own timeout before Run returns, and the
// Store is flushed once (§4.3 Shutdown, §5 Cancellation).
func (c *Crawler) Run(ctx context.Context, seed SeedFunc, knownPeers []addrmgr.Addr) {
	c.initialize(ctx, seed, knownPeers)

	sem := make(chan struct{}, c.cfg.Threads)
	for {
		if ctx.Err() != nil {
			break
		}

		batch := c.mgr.SelectForProbe(batchMultiplier * c.cfg.Threads)
		batch = c.applyPrefixLimit(batch)

		if len(batch) == 0 {
			select {
			case <-ctx.Done():
			case <-c.clk.After(emptyQueueTick):
			}
			continue
		}

		var wg sync.WaitGroup
		for _, addr := range batch {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				if err := c.mgr.Persist(); err != nil && c.log != nil {
					c.log.Warn("final persist failed", zap.Error(err))
				}
				return
			}
			wg.Add(1)
			go func(a addrmgr.Addr) {
				defer wg.Done()
				defer func() { <-sem }()
				c.probeOne(a)
			}(addr)
		}
		wg.Wait()
	}

	if err := c.mgr.Persist(); err != nil && c.log != nil {
		c.log.Warn("final persist failed", zap.Error(err))
	}
}

func (c *Crawler) initialize(ctx context.Context, seed SeedFunc, knownPeers []addrmgr.Addr) {
	if seed != nil {
		seedCtx, cancel := context.WithTimeout(ctx, c.cfg.SeedTimeout)
		if err := seed(seedCtx); err != nil && c.log != nil {
			c.log.Warn("seed discovery failed, proceeding without it", zap.Error(err))
		}
		cancel()
	}

	for _, kp := range knownPeers {
		if reason := c.mgr.SeedKnownPeer(kp); reason != addrmgr.RejectNone {
			if c.log != nil {
				c.log.Warn("known peer rejected by sanitation", zap.Stringer("addr", kp), zap.Stringer("reason", reason))
			}
		}
	}
}

func (c *Crawler) probeOne(a addrmgr.Addr) {
	verdict := c.prober.Probe(a)

	switch verdict.Outcome {
	case probe.Ok:
		probeOutcomes.WithLabelValues("ok").Inc()
		c.mgr.MarkSuccess(a, verdict.ProtocolVersion, verdict.UserAgent, verdict.SubnetworkID)
		if len(verdict.Harvested) > 0 {
			harvestedAddresses.Add(float64(len(verdict.Harvested)))
		}
		for _, h := range verdict.Harvested {
			c.mgr.AddOrMerge(h, addrmgr.SourceMetadata{})
		}
	case probe.Rejected:
		probeOutcomes.WithLabelValues("rejected").Inc()
		c.mgr.MarkFailure(a)
	default:
		probeOutcomes.WithLabelValues("unreachable").Inc()
		c.mgr.MarkFailure(a)
	}

	if c.log != nil {
		c.log.Debug("probe complete", zap.Stringer("addr", a), zap.Int("outcome", int(verdict.Outcome)))
	}
}

// applyPrefixLimit implements the /16 (IPv4) / /32 (IPv6) back-off of
// §4.3: if more than one candidate from the same prefix was returned in
// this batch, only the first is kept for this cycle, and a candidate whose
// prefix was last probed less than prefixMinGap ago is skipped as well.
// Skipped candidates are not marked as attempted, so the Store offers them
// again on a later cycle.
func (c *Crawler) applyPrefixLimit(batch []addrmgr.Addr) []addrmgr.Addr {
	now := c.clk.Now()

	c.prefixMu.Lock()
	defer c.prefixMu.Unlock()

	seenThisBatch := make(map[string]bool)
	out := make([]addrmgr.Addr, 0, len(batch))
	for _, a := range batch {
		key := prefixKey(a)
		last, seenBefore := c.prefixLastProbe[key]
		if (seenBefore && now.Sub(last) < prefixMinGap) || seenThisBatch[key] {
			prefixDeferred.Inc()
			continue
		}
		seenThisBatch[key] = true
		c.prefixLastProbe[key] = now
		out = append(out, a)
	}
	return out
}

func prefixKey(a addrmgr.Addr) string {
	if v4 := a.IP.To4(); v4 != nil {
		mask := net.CIDRMask(16, 32)
		return v4.Mask(mask).String()
	}
	mask := net.CIDRMask(32, 128)
	return a.IP.Mask(mask).String()
}
