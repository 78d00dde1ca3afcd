// Package dnsresponder implements the Authoritative DNS Responder of §4.5:
// a UDP server answering A/AAAA/NS/SOA queries for exactly one configured
// zone from a random sample of currently-Good Store entries.
package dnsresponder

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/apperr"
)

// Sample sizes chosen, per §4.5, so the UDP response (headers + answer +
// authority) stays under 512 bytes without EDNS0.
const (
	defaultSampleSizeA    = 8
	defaultSampleSizeAAAA = 4
)

// buildSerial is the SOA's stable serial, a build constant per §4.5.
const buildSerial = 2024010100

// Config configures one Server.
type Config struct {
	Zone       string // e.g. "seed.example.com."
	Nameserver string
	Listen     string // e.g. "0.0.0.0:5354"
	TTL        uint32

	SampleSizeA    int
	SampleSizeAAAA int
}

// Server is the UDP DNS responder.
type Server struct {
	cfg Config
	mgr addrmgr.Manager
	log *zap.Logger

	dnsSrv *dns.Server
}

// New constructs a Server. Zero-valued SampleSizeA/AAAA fall back to the
// §4.5 defaults.
func New(cfg Config, mgr addrmgr.Manager, log *zap.Logger) *Server {
	if cfg.SampleSizeA == 0 {
		cfg.SampleSizeA = defaultSampleSizeA
	}
	if cfg.SampleSizeAAAA == 0 {
		cfg.SampleSizeAAAA = defaultSampleSizeAAAA
	}
	cfg.Zone = dns.Fqdn(cfg.Zone)
	cfg.Nameserver = dns.Fqdn(cfg.Nameserver)
	return &Server{cfg: cfg, mgr: mgr, log: log}
}

// ListenAndServe binds the configured UDP address and serves until
// Shutdown is called. Per §4.5 Binding, it always binds an IPv4 UDP socket
// even when the configured listen address is IPv6 — an implementation
// detail preserved for compatibility with the standard resolvers this
// protocol is spoken to.
func (s *Server) ListenAndServe() error {
	network, address, err := bindAddress(s.cfg.Listen)
	if err != nil {
		return err
	}

	conn, err := net.ListenPacket(network, address)
	if err != nil {
		return err
	}

	s.dnsSrv = &dns.Server{PacketConn: conn, Handler: dns.HandlerFunc(s.handle)}
	if s.log != nil {
		s.log.Info("dns responder listening", zap.String("network", network), zap.String("address", address))
	}
	// ActivateAndServe blocks until the PacketConn is closed (Shutdown)
	// or a fatal socket error occurs, which §4.5 treats as a fatal
	// process error.
	return s.dnsSrv.ActivateAndServe()
}

// Shutdown stops accepting new requests and closes the socket, draining
// whatever response is already in flight on the handling goroutine (§5
// Cancellation: "DNS... servers stop accepting new requests but drain
// in-flight responses").
func (s *Server) Shutdown() error {
	if s.dnsSrv == nil {
		return nil
	}
	return s.dnsSrv.Shutdown()
}

// bindAddress always resolves to the udp4 network. A configured IPv6 host
// (or an empty/wildcard host) maps to the IPv4 wildcard; a configured IPv4
// host is used as given.
func bindAddress(listen string) (network, address string, err error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", "", err
	}
	network = "udp4"
	if host == "" || host == "0.0.0.0" || host == "::" {
		return network, net.JoinHostPort("0.0.0.0", port), nil
	}
	ip := net.ParseIP(host)
	if ip != nil && ip.To4() == nil {
		return network, net.JoinHostPort("0.0.0.0", port), nil
	}
	return network, listen, nil
}

func (s *Server) handle(w dns.ResponseWriter, r *dns.Msg) {
	defer w.Close()

	resp := new(dns.Msg)
	resp.SetReply(r)
	resp.Authoritative = true

	defer func() {
		if rec := recover(); rec != nil {
			err := &apperr.InternalError{Reason: "panic in dns handler", Err: errors.WithStack(fmt.Errorf("%v", rec))}
			if s.log != nil {
				s.log.Error("internal error answering dns query", zap.Error(err))
			}
			s.reply(w, resp, dns.RcodeServerFailure, dns.TypeNone)
		}
	}()

	if len(r.Question) != 1 {
		err := &apperr.DNSParseError{Reason: fmt.Sprintf("expected exactly one question, got %d", len(r.Question))}
		if s.log != nil {
			s.log.Debug("rejecting malformed query", zap.Error(err))
		}
		s.reply(w, resp, dns.RcodeFormatError, dns.TypeNone)
		return
	}
	q := r.Question[0]

	match, subnetworkID := classifyName(q.Name, s.cfg.Zone)
	if match == outsideZone {
		s.reply(w, resp, dns.RcodeRefused, q.Qtype)
		return
	}

	switch q.Qtype {
	case dns.TypeA:
		s.answerAddresses(resp, q, addrmgr.FamilyV4, subnetworkID, match)
	case dns.TypeAAAA:
		s.answerAddresses(resp, q, addrmgr.FamilyV6, subnetworkID, match)
	case dns.TypeNS:
		resp.Answer = append(resp.Answer, s.nsRecord(q.Name))
	case dns.TypeSOA:
		resp.Answer = append(resp.Answer, s.soaRecord(q.Name))
	default:
		// NOERROR with empty answer section, per §4.5 step 3.
	}

	resp.Ns = append(resp.Ns, s.nsRecord(s.cfg.Zone))
	s.reply(w, resp, dns.RcodeSuccess, q.Qtype)
}

func (s *Server) answerAddresses(resp *dns.Msg, q dns.Question, family addrmgr.Family, subnetworkID string, match zoneMatch) {
	if match == inZoneUnparseablePrefix {
		return // NOERROR, empty answer — never NXDOMAIN.
	}

	max := s.cfg.SampleSizeA
	if family == addrmgr.FamilyV6 {
		max = s.cfg.SampleSizeAAAA
	}

	sample := s.mgr.GoodSample(max, family, subnetworkID)
	for _, a := range sample {
		if family == addrmgr.FamilyV4 {
			rr := &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
				A:   a.IP.To4(),
			}
			resp.Answer = append(resp.Answer, rr)
		} else {
			rr := &dns.AAAA{
				Hdr:  dns.RR_Header{Name: q.Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
				AAAA: a.IP.To16(),
			}
			resp.Answer = append(resp.Answer, rr)
		}
	}
}

func (s *Server) nsRecord(name string) *dns.NS {
	return &dns.NS{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: s.cfg.TTL},
		Ns:  s.cfg.Nameserver,
	}
}

func (s *Server) soaRecord(name string) *dns.SOA {
	return &dns.SOA{
		Hdr:     dns.RR_Header{Name: name, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: s.cfg.TTL},
		Ns:      s.cfg.Nameserver,
		Mbox:    "hostmaster." + s.cfg.Zone,
		Serial:  buildSerial,
		Refresh: 3600,
		Retry:   600,
		Expire:  604800,
		Minttl:  300,
	}
}

func (s *Server) reply(w dns.ResponseWriter, resp *dns.Msg, rcode int, qtype uint16) {
	resp.Rcode = rcode
	queriesByRcode.WithLabelValues(rcodeLabel(rcode), dns.TypeToString[qtype]).Inc()
	if err := w.WriteMsg(resp); err != nil && s.log != nil {
		s.log.Warn("failed writing dns response", zap.Error(err))
	}
}

func rcodeLabel(rcode int) string {
	if name, ok := dns.RcodeToString[rcode]; ok {
		return strings.ToLower(name)
	}
	return "unknown"
}
