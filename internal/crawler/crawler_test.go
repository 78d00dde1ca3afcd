package crawler

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/probe"
)

// fakeManager is a minimal in-memory addrmgr.Manager stand-in so the
// dispatch loop can be exercised without a real Store.
type fakeManager struct {
	mu         sync.Mutex
	candidates []addrmgr.Addr
	successes  []addrmgr.Addr
	failures   []addrmgr.Addr
	merged     []addrmgr.Addr
	knownPeers []addrmgr.Addr
	persisted  int
}

func (f *fakeManager) AddOrMerge(a addrmgr.Addr, _ addrmgr.SourceMetadata) addrmgr.RejectReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, a)
	return addrmgr.RejectNone
}
func (f *fakeManager) SeedKnownPeer(a addrmgr.Addr) addrmgr.RejectReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.knownPeers = append(f.knownPeers, a)
	return addrmgr.RejectNone
}
func (f *fakeManager) MarkSuccess(a addrmgr.Addr, _ uint32, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes = append(f.successes, a)
}
func (f *fakeManager) MarkFailure(a addrmgr.Addr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, a)
}
func (f *fakeManager) SelectForProbe(n int) []addrmgr.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.candidates
	f.candidates = nil
	if len(out) > n {
		out = out[:n]
	}
	return out
}
func (f *fakeManager) GoodSample(int, addrmgr.Family, string) []addrmgr.Addr { return nil }
func (f *fakeManager) SnapshotStats() addrmgr.Stats                         { return addrmgr.Stats{} }
func (f *fakeManager) RetireSweep()                                        {}
func (f *fakeManager) Persist() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted++
	return nil
}
func (f *fakeManager) Load() error { return nil }

type fakeProber struct {
	verdict probe.Verdict
}

func (p *fakeProber) Probe(addrmgr.Addr) probe.Verdict { return p.verdict }

func TestCrawlerInitializeSeedsKnownPeers(t *testing.T) {
	mgr := &fakeManager{}
	c := New(mgr, &fakeProber{}, Config{Threads: 2, SeedTimeout: time.Second}, clock.New(), nil)

	known := []addrmgr.Addr{addrmgr.NewAddr(net.ParseIP("8.8.8.8"), 16111)}
	seedCalled := false
	seed := func(ctx context.Context) error { seedCalled = true; return nil }

	c.initialize(context.Background(), seed, known)

	assert.True(t, seedCalled)
	require.Len(t, mgr.knownPeers, 1)
	assert.Equal(t, known[0], mgr.knownPeers[0])
}

func TestCrawlerProbeOneMarksSuccessAndMerges(t *testing.T) {
	mgr := &fakeManager{}
	harvested := addrmgr.NewAddr(net.ParseIP("8.8.4.4"), 16111)
	c := New(mgr, &fakeProber{verdict: probe.Verdict{Outcome: probe.Ok, Harvested: []addrmgr.Addr{harvested}}},
		Config{Threads: 1}, clock.New(), nil)

	a := addrmgr.NewAddr(net.ParseIP("8.8.8.8"), 16111)
	c.probeOne(a)

	require.Len(t, mgr.successes, 1)
	assert.Equal(t, a, mgr.successes[0])
	require.Len(t, mgr.merged, 1)
	assert.Equal(t, harvested, mgr.merged[0])
}

func TestCrawlerProbeOneMarksFailureOnRejectedOrUnreachable(t *testing.T) {
	mgr := &fakeManager{}
	c := New(mgr, &fakeProber{verdict: probe.Verdict{Outcome: probe.Rejected}}, Config{Threads: 1}, clock.New(), nil)

	a := addrmgr.NewAddr(net.ParseIP("8.8.8.8"), 16111)
	c.probeOne(a)

	require.Len(t, mgr.failures, 1)
	assert.Equal(t, a, mgr.failures[0])

	mgr2 := &fakeManager{}
	c2 := New(mgr2, &fakeProber{verdict: probe.Verdict{Outcome: probe.Unreachable}}, Config{Threads: 1}, clock.New(), nil)
	c2.probeOne(a)

	require.Len(t, mgr2.failures, 1)
	assert.Equal(t, a, mgr2.failures[0])
}

func TestApplyPrefixLimitDefersSamePrefix(t *testing.T) {
	mgr := &fakeManager{}
	mock := clock.NewMock()
	c := New(mgr, &fakeProber{}, Config{Threads: 1}, mock, nil)

	batch := []addrmgr.Addr{
		addrmgr.NewAddr(net.ParseIP("8.8.8.1"), 16111),
		addrmgr.NewAddr(net.ParseIP("8.8.8.2"), 16111), // same /16
	}
	out := c.applyPrefixLimit(batch)
	assert.Len(t, out, 1)
}

func TestApplyPrefixLimitAllowsDistinctPrefixes(t *testing.T) {
	mgr := &fakeManager{}
	mock := clock.NewMock()
	c := New(mgr, &fakeProber{}, Config{Threads: 1}, mock, nil)

	batch := []addrmgr.Addr{
		addrmgr.NewAddr(net.ParseIP("8.8.8.1"), 16111),
		addrmgr.NewAddr(net.ParseIP("1.2.3.4"), 16111),
	}
	out := c.applyPrefixLimit(batch)
	assert.Len(t, out, 2)
}

func TestCrawlerRunStopsOnCancelAndPersists(t *testing.T) {
	mgr := &fakeManager{}
	mgr.candidates = []addrmgr.Addr{addrmgr.NewAddr(net.ParseIP("8.8.8.8"), 16111)}
	c := New(mgr, &fakeProber{verdict: probe.Verdict{Outcome: probe.Ok}}, Config{Threads: 1, SeedTimeout: time.Second}, clock.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, nil, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.GreaterOrEqual(t, mgr.persisted, 1)
}
