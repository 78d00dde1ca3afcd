package probe

import (
	"encoding/json"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/apperr"
)

func unmarshal(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}

// Outcome is the kind of verdict a probe produced.
type Outcome int

const (
	Unreachable Outcome = iota
	Rejected
	Ok
)

// Verdict is the result of one probe attempt, per §4.2.
type Verdict struct {
	Outcome Outcome

	// Populated only when Outcome == Ok.
	ProtocolVersion uint32
	UserAgent       string
	SubnetworkID    string
	Harvested       []addrmgr.Addr

	// Err carries the underlying cause for Unreachable/Rejected, for
	// logging; callers must not branch on it, only on Outcome (§7).
	Err error
}

// Config parameterizes one Prober. UserAgentName/Version, ProtocolVersion,
// and NetworkID are what this seeder itself advertises in its version
// message.
type Config struct {
	NetworkID       string
	ProtocolVersion uint32
	UserAgentName   string
	UserAgentVersion string
	MinProtocolVer  uint32
	MinUserAgentVer string // empty disables the check

	ConnectTimeout        time.Duration
	HandshakeTimeout       time.Duration
	AddressResponseTimeout time.Duration
}

// DefaultConfig returns §4.2's "seconds scale" / "a few seconds" timeouts.
func DefaultConfig(networkID string, protocolVersion uint32, minProtocolVer uint32) Config {
	return Config{
		NetworkID:              networkID,
		ProtocolVersion:        protocolVersion,
		UserAgentName:          "kaspa-ng-dnsseeder",
		UserAgentVersion:       "1.0.0",
		MinProtocolVer:         minProtocolVer,
		ConnectTimeout:         3 * time.Second,
		HandshakeTimeout:       4 * time.Second,
		AddressResponseTimeout: 3 * time.Second,
	}
}

// Prober is the interface the Crawler depends on, so tests can substitute
// a fake that returns canned verdicts without opening real sockets (§9).
type Prober interface {
	Probe(a addrmgr.Addr) Verdict
}

// TCPProber is the production Prober: it dials the address and runs the
// handshake described in §4.2 over net.Conn.
type TCPProber struct {
	cfg Config
	log *zap.Logger
}

// NewTCPProber constructs a Prober. The Prober itself is stateless between
// calls — safe to invoke concurrently from many workers (§4.2
// Statelessness).
func NewTCPProber(cfg Config, log *zap.Logger) *TCPProber {
	return &TCPProber{cfg: cfg, log: log}
}

func (p *TCPProber) Probe(a addrmgr.Addr) Verdict {
	start := time.Now()
	conn, err := net.DialTimeout("tcp", a.String(), p.cfg.ConnectTimeout)
	if err != nil {
		if p.log != nil {
			p.log.Debug("probe connect failed", zap.Stringer("addr", a), zap.Error(err))
		}
		return Verdict{Outcome: Unreachable, Err: &apperr.ProbeError{Outcome: apperr.ProbeUnreachable, Err: err}}
	}
	defer conn.Close()
	defer func() {
		if p.log != nil {
			p.log.Debug("probe finished", zap.Stringer("addr", a), zap.Duration("elapsed", time.Since(start)))
		}
	}()

	totalDeadline := time.Now().Add(p.cfg.ConnectTimeout + p.cfg.HandshakeTimeout + p.cfg.AddressResponseTimeout)
	_ = conn.SetDeadline(totalDeadline)

	peerVersion, err := p.exchangeVersion(conn)
	if err != nil {
		return Verdict{Outcome: Unreachable, Err: &apperr.ProbeError{Outcome: apperr.ProbeUnreachable, Reason: "version exchange", Err: err}}
	}

	if verdict, rejected := p.classify(peerVersion); rejected {
		return verdict
	}

	harvested, err := p.exchangeAddr(conn)
	if err != nil {
		// §4.2: absence of an address reply is not a failure.
		harvested = nil
	}

	return Verdict{
		Outcome:         Ok,
		ProtocolVersion: peerVersion.ProtocolVersion,
		UserAgent:       peerVersion.UserAgent,
		SubnetworkID:    peerVersion.SubnetworkID,
		Harvested:       harvested,
	}
}

func (p *TCPProber) exchangeVersion(conn net.Conn) (versionPayload, error) {
	own := versionPayload{
		ProtocolVersion: p.cfg.ProtocolVersion,
		NetworkID:       p.cfg.NetworkID,
		Nonce:           rand.Uint64(),
		Timestamp:       time.Now().Unix(),
		UserAgent:       p.cfg.UserAgentName + "/" + p.cfg.UserAgentVersion,
		SubnetworkID:    addrmgr.SubnetworkUnknown,
	}
	if err := writeMessage(conn, cmdVersion, own); err != nil {
		return versionPayload{}, err
	}

	cmd, body, err := readMessage(conn)
	if err != nil {
		return versionPayload{}, err
	}
	var peerVersion versionPayload
	if cmd == cmdVersion {
		if err := unmarshal(body, &peerVersion); err != nil {
			return versionPayload{}, err
		}
	}

	if err := writeMessage(conn, cmdVerAck, struct{}{}); err != nil {
		return versionPayload{}, err
	}
	if _, _, err := readMessage(conn); err != nil {
		return versionPayload{}, err
	}

	return peerVersion, nil
}

func (p *TCPProber) classify(v versionPayload) (Verdict, bool) {
	if v.NetworkID != p.cfg.NetworkID {
		return Verdict{Outcome: Rejected, Err: &apperr.ProbeError{Outcome: apperr.ProbeRejected, Reason: "network id mismatch"}}, true
	}
	if v.ProtocolVersion < p.cfg.MinProtocolVer {
		return Verdict{Outcome: Rejected, Err: &apperr.ProbeError{Outcome: apperr.ProbeRejected, Reason: "protocol version below minimum"}}, true
	}
	if p.cfg.MinUserAgentVer != "" && v.UserAgent < p.cfg.MinUserAgentVer {
		return Verdict{Outcome: Rejected, Err: &apperr.ProbeError{Outcome: apperr.ProbeRejected, Reason: "user agent below minimum"}}, true
	}
	return Verdict{}, false
}

func (p *TCPProber) exchangeAddr(conn net.Conn) ([]addrmgr.Addr, error) {
	if err := writeMessage(conn, cmdGetAddr, struct{}{}); err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(p.cfg.AddressResponseTimeout))

	cmd, body, err := readMessage(conn)
	if err != nil {
		return nil, err
	}
	if cmd != cmdAddr {
		return nil, nil
	}
	var ap addrPayload
	if err := unmarshal(body, &ap); err != nil {
		return nil, err
	}

	harvested := make([]addrmgr.Addr, 0, len(ap.Addresses))
	for _, e := range ap.Addresses {
		ip := net.ParseIP(e.IP)
		if ip == nil {
			continue
		}
		a := addrmgr.NewAddr(ip, e.Port)
		if addrmgr.Sanitize(a) != addrmgr.RejectNone {
			continue
		}
		harvested = append(harvested, a)
	}
	return harvested, nil
}
