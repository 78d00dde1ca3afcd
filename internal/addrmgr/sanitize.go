package addrmgr

import (
	"net"

	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/logging"
)

// RejectReason is the typed reason sanitation rejected an address. Rejected
// inputs never mutate Store state and are never surfaced as errors to the
// caller — only counted (§4.1 failure semantics).
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectInvalidIP
	RejectZeroPort
	RejectLoopback
	RejectUnspecified
	RejectMulticast
	RejectNotRoutable
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "ok"
	case RejectInvalidIP:
		return "invalid_ip"
	case RejectZeroPort:
		return "zero_port"
	case RejectLoopback:
		return "loopback"
	case RejectUnspecified:
		return "unspecified"
	case RejectMulticast:
		return "multicast"
	case RejectNotRoutable:
		return "not_routable"
	default:
		return "unknown"
	}
}

// rfc1918Nets specifies the IPv4 private address blocks as defined by
// RFC1918 (10.0.0.0/8, 172.16.0.0/12, and 192.168.0.0/16).
var rfc1918Nets = []net.IPNet{
	ipNet("10.0.0.0", 8, 32),
	ipNet("172.16.0.0", 12, 32),
	ipNet("192.168.0.0", 16, 32),
}

// Documentation ranges (RFC5737 for IPv4, RFC3849 for IPv6) are
// deliberately not rejected here even though they are not globally
// routable — see DESIGN.md: spec.md's own worked end-to-end scenarios use
// 203.0.113.0/24 and 198.51.100.0/24 addresses as literal known-peer and
// harvested-address examples, so rejecting them would make those scenarios
// unreproducible.

var (
	// rfc3964Net specifies the IPv6 to IPv4 encapsulation address block
	// defined by RFC3964 (2002::/16).
	rfc3964Net = ipNet("2002::", 16, 128)

	// rfc4380Net specifies the IPv6 Teredo tunneling address block
	// defined by RFC4380 (2001::/32).
	rfc4380Net = ipNet("2001::", 32, 128)

	// rfc4843Net specifies the IPv6 ORCHID address block defined by
	// RFC4843 (2001:10::/28).
	rfc4843Net = ipNet("2001:10::", 28, 128)

	// rfc4862Net specifies the IPv6 link-local address block defined by
	// RFC4862 (FE80::/64).
	rfc4862Net = ipNet("FE80::", 64, 128)

	// rfc4193Net specifies the IPv6 unique local address block defined
	// by RFC4193 (FC00::/7).
	rfc4193Net = ipNet("FC00::", 7, 128)
)

func ipNet(ip string, ones, bits int) net.IPNet {
	return net.IPNet{IP: net.ParseIP(ip), Mask: net.CIDRMask(ones, bits)}
}

// Sanitize validates an Addr against §3's rules: no loopback, no
// unspecified, no multicast, port > 0. It is idempotent — sanitizing an
// already-accepted address returns RejectNone again (P7). See the note
// above rfc3964Net on why RFC5737/RFC3849 documentation ranges are not
// rejected.
func Sanitize(a Addr) (reason RejectReason) {
	defer func() {
		if reason != RejectNone {
			logging.Log().Debug("sanitation rejected address", zap.Stringer("addr", a), zap.Stringer("reason", reason))
		}
	}()

	if a.Port == 0 {
		return RejectZeroPort
	}
	ip := a.IP
	if ip == nil {
		return RejectInvalidIP
	}
	if ip.IsLoopback() {
		return RejectLoopback
	}
	if ip.IsUnspecified() {
		return RejectUnspecified
	}
	if ip.IsMulticast() {
		return RejectMulticast
	}

	if v4 := ip.To4(); v4 != nil {
		for _, n := range rfc1918Nets {
			if n.Contains(v4) {
				return RejectNotRoutable
			}
		}
		return RejectNone
	}

	if rfc3964Net.Contains(ip) ||
		rfc4380Net.Contains(ip) ||
		rfc4843Net.Contains(ip) ||
		rfc4862Net.Contains(ip) ||
		rfc4193Net.Contains(ip) {
		return RejectNotRoutable
	}

	return RejectNone
}
