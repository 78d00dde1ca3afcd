package addrmgr

import (
	"net"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *clock.Mock) {
	mock := clock.NewMock()
	s := New(16111, testTuning(), mock, nil, nil)
	return s, mock
}

func TestAddOrMergeRejectsUnsanitaryAddress(t *testing.T) {
	s, _ := newTestStore()
	reason := s.AddOrMerge(NewAddr(net.ParseIP("127.0.0.1"), 16111), SourceMetadata{})
	assert.Equal(t, RejectLoopback, reason)
}

func TestAddOrMergeStickyKnownPeer(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)

	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{IsKnownPeer: true}))

	sh := s.shardFor(a.Key())
	sh.mu.RLock()
	r := sh.records[a.Key()]
	sh.mu.RUnlock()
	assert.True(t, r.IsKnownPeer)

	// A later, untrusted merge must not clear the sticky flag.
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))
	sh.mu.RLock()
	r = sh.records[a.Key()]
	sh.mu.RUnlock()
	assert.True(t, r.IsKnownPeer)
}

func TestMarkSuccessDefaultPortPromotesToGood(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))

	s.MarkSuccess(a, 1, "ua/1.0", "unknown")

	st := s.SnapshotStats()
	assert.Equal(t, 1, st.Good)
}

func TestMarkSuccessNonDefaultPortNeverGood(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 30000)
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))

	s.MarkSuccess(a, 1, "ua/1.0", "unknown")

	st := s.SnapshotStats()
	assert.Equal(t, 0, st.Good)
	assert.Equal(t, 1, st.Stale)
}

func TestSeedKnownPeerIsImmediatelyGood(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	require.Equal(t, RejectNone, s.SeedKnownPeer(a))

	st := s.SnapshotStats()
	assert.Equal(t, 1, st.Good)
}

func TestMarkFailureIncrementsAttempts(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))

	s.MarkFailure(a)
	s.MarkFailure(a)

	sh := s.shardFor(a.Key())
	sh.mu.RLock()
	r := sh.records[a.Key()]
	sh.mu.RUnlock()
	assert.Equal(t, 2, r.AttemptsSinceSuccess)
}

func TestMarkFailureUnknownAddressIsNoop(t *testing.T) {
	s, _ := newTestStore()
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	assert.NotPanics(t, func() { s.MarkFailure(a) })
}
