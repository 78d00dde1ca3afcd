package addrmgr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/apperr"
)

// persistFormatVersion is carried from day one per the Open Question in
// §9: "a new implementation should pick a stable, self-describing format
// and carry a format-version integer."
const persistFormatVersion = 1

const peersFilename = "peers.json"

// persistedRecord is the self-describing on-disk shape of a Record, with
// stable field names independent of the in-memory struct's layout.
type persistedRecord struct {
	Address              string    `json:"address"`
	SubnetworkID         string    `json:"subnetwork_id"`
	ProtocolVersion      uint32    `json:"protocol_version"`
	UserAgent            string    `json:"user_agent"`
	FirstSeen            time.Time `json:"first_seen"`
	LastAttempt          time.Time `json:"last_attempt"`
	LastSuccess          time.Time `json:"last_success"`
	AttemptsSinceSuccess int       `json:"attempts_since_success"`
	IsKnownPeer          bool      `json:"is_known_peer"`
	SuccessOnDefaultPort bool      `json:"success_on_default_port"`
}

type persistedFile struct {
	FormatVersion int                          `json:"format_version"`
	Records       map[string]persistedRecord   `json:"records"`
}

// persistence owns the on-disk path and the atomic write discipline. It is
// a separate type from Store so tests can point it at a temp directory
// without standing up a whole Store.
type persistence struct {
	path string
	log  *zap.Logger
}

// NewPersistence returns a persistence rooted at appDir/peers.json.
func NewPersistence(appDir string, log *zap.Logger) *persistence {
	return &persistence{path: filepath.Join(appDir, peersFilename), log: log}
}

// Persist implements §4.1/§6: write to peers.json.tmp, fsync, rename over
// the target (temp-file-plus-atomic-rename discipline).
func (s *Store) Persist() error {
	if s.persist == nil {
		return nil
	}
	records := s.snapshotAll()

	out := persistedFile{
		FormatVersion: persistFormatVersion,
		Records:       make(map[string]persistedRecord, len(records)),
	}
	for _, r := range records {
		out.Records[r.Address.String()] = persistedRecord{
			Address:              r.Address.String(),
			SubnetworkID:         r.SubnetworkID,
			ProtocolVersion:      r.ProtocolVersion,
			UserAgent:            r.UserAgent,
			FirstSeen:            r.FirstSeen,
			LastAttempt:          r.LastAttempt,
			LastSuccess:          r.LastSuccess,
			AttemptsSinceSuccess: r.AttemptsSinceSuccess,
			IsKnownPeer:          r.IsKnownPeer,
			SuccessOnDefaultPort: r.lastSuccessOnDefaultPort,
		}
	}

	if err := s.persist.write(out); err != nil {
		persistFailures.Inc()
		werr := &apperr.StorageError{Op: "persist", Err: err}
		if s.log != nil {
			s.log.Warn("failed to persist peers file", zap.Error(werr))
		}
		return werr
	}
	return nil
}

func (p *persistence) write(data persistedFile) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "creating app dir")
	}

	tmp := p.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		return errors.Wrap(err, "encoding peers file")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "fsyncing temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return errors.Wrap(err, "renaming temp file into place")
	}
	return nil
}

// Load implements §4.1/§6: tolerate a missing file (empty start) and a
// partially-written/corrupt file (discard and start empty, logging the
// condition, moving the bad file aside with a timestamped name).
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}
	data, err := os.ReadFile(s.persist.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &apperr.StorageError{Op: "load", Err: err}
	}

	var pf persistedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		loadCorruptions.Inc()
		s.quarantineCorruptFile(err)
		return nil
	}

	now := s.clk.Now()
	loaded := 0
	for _, pr := range pf.Records {
		a, perr := ParseAddr(pr.Address)
		if perr != nil {
			continue
		}
		if Sanitize(a) != RejectNone {
			continue
		}
		r := &Record{
			Address:                  a,
			SubnetworkID:             pr.SubnetworkID,
			ProtocolVersion:          pr.ProtocolVersion,
			UserAgent:                pr.UserAgent,
			FirstSeen:                pr.FirstSeen,
			LastAttempt:              pr.LastAttempt,
			LastSuccess:              pr.LastSuccess,
			AttemptsSinceSuccess:     pr.AttemptsSinceSuccess,
			IsKnownPeer:              pr.IsKnownPeer,
			lastSuccessOnDefaultPort: pr.SuccessOnDefaultPort,
		}
		if r.FirstSeen.IsZero() {
			r.FirstSeen = now
		}
		sh := s.shardFor(a.Key())
		sh.mu.Lock()
		sh.records[a.Key()] = r
		sh.mu.Unlock()
		loaded++
	}
	if s.log != nil {
		s.log.Info("loaded peers from disk", zap.Int("count", loaded), zap.Int("format_version", pf.FormatVersion))
	}
	return nil
}

func (s *Store) quarantineCorruptFile(cause error) {
	quarantined := fmt.Sprintf("%s.corrupt-%d", s.persist.path, s.clk.Now().UnixNano())
	if err := os.Rename(s.persist.path, quarantined); err != nil && !os.IsNotExist(err) {
		if s.log != nil {
			s.log.Warn("failed to quarantine corrupt peers file", zap.Error(err))
		}
		return
	}
	if s.log != nil {
		s.log.Warn("peers file was corrupt, starting empty",
			zap.Error(cause), zap.String("quarantined_as", quarantined))
	}
}
