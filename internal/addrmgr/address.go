package addrmgr

import (
	"net"
	"strconv"
)

// Addr is a Peer Address: a transport endpoint identified by IP and port.
// Two Addrs are equal iff IP and port are equal; an IPv6 zone-id is
// stripped on construction so it is never part of identity (§3).
type Addr struct {
	IP   net.IP
	Port uint16
}

// NewAddr builds an Addr from an IP and a port, stripping any IPv6 zone-id.
func NewAddr(ip net.IP, port uint16) Addr {
	return Addr{IP: stripZone(ip), Port: port}
}

// ParseAddr parses a "host:port" string into an Addr. A bare host with no
// port is rejected by this function; callers that accept bare hosts (the
// seeder/known_peers CLI values) pair them with the network's default port
// before calling this.
func ParseAddr(hostport string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Addr{}, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return Addr{}, &net.AddrError{Err: "invalid or unresolvable host", Addr: host}
		}
		ip = ips[0]
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, err
	}
	return NewAddr(ip, uint16(port)), nil
}

// Key returns a stable map key for this address, normalizing the IP's
// internal representation so a v4-in-v6 form and a plain v4 form of the same
// address collide, per I3.
func (a Addr) Key() string {
	ip := a.IP
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return string(ip) + ":" + strconv.Itoa(int(a.Port))
}

func (a Addr) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// IsIPv4 reports whether this address belongs to the A (v4) family.
func (a Addr) IsIPv4() bool {
	return a.IP.To4() != nil
}

func stripZone(ip net.IP) net.IP {
	// net.IP itself carries no zone (that lives on net.IPAddr); this
	// exists so callers constructing an Addr from a net.IPAddr-derived
	// value have a single, obvious place the stripping happens.
	return ip
}
