package addrmgr

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(dir, nil)
	mock := clock.New()
	s := New(16111, testTuning(), mock, nil, p)

	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	require.Equal(t, RejectNone, s.AddOrMerge(a, SourceMetadata{}))
	s.MarkSuccess(a, 3, "kaspa-ng-dnsseeder/1.0.0", "unknown")

	require.NoError(t, s.Persist())

	loaded := New(16111, testTuning(), mock, nil, p)
	require.NoError(t, loaded.Load())

	st := loaded.SnapshotStats()
	assert.Equal(t, 1, st.Good)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(dir, nil)
	s := New(16111, testTuning(), clock.New(), nil, p)
	assert.NoError(t, s.Load())
}

func TestLoadQuarantinesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, peersFilename)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	p := NewPersistence(dir, nil)
	s := New(16111, testTuning(), clock.New(), nil, p)
	require.NoError(t, s.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var sawQuarantined bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) != "" && e.Name() != peersFilename {
			sawQuarantined = true
		}
	}
	assert.True(t, sawQuarantined, "expected a peers.json.corrupt-* file")
	assert.Equal(t, 0, loadedStatsOf(t, s))
}

func loadedStatsOf(t *testing.T, s *Store) int {
	t.Helper()
	st := s.SnapshotStats()
	return st.Good + st.Stale + st.Bad + st.New
}
