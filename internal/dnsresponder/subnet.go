package dnsresponder

import (
	"regexp"
	"strings"

	"github.com/miekg/dns"
)

// subnetworkLabelRe matches the literal `x<40 hex chars>` form §4.5/§9
// document by example: the prefix char 'x' followed by exactly 40 hex
// characters (the 20-byte subnetwork ID, hex-encoded).
var subnetworkLabelRe = regexp.MustCompile(`^(?i)x[0-9a-f]{40}$`)

// zoneMatch classifies an incoming question name against the configured
// zone and an optional subnetwork-filter prefix label.
type zoneMatch int

const (
	// outsideZone: REFUSED (§4.5 step 2, P8).
	outsideZone zoneMatch = iota
	// inZoneNoFilter: a plain query for the zone itself.
	inZoneNoFilter
	// inZoneFiltered: a well-formed x<hex> prefix was present.
	inZoneFiltered
	// inZoneUnparseablePrefix: some other subdomain label was present.
	// Answered NOERROR with an empty answer section; never NXDOMAIN.
	inZoneUnparseablePrefix
)

// classifyName splits an incoming question name into its zone-membership
// classification and, when inZoneFiltered, the 40-hex-character
// subnetwork ID it named.
func classifyName(qname, zone string) (zoneMatch, string) {
	qname = dns.Fqdn(strings.ToLower(qname))
	zoneFQDN := dns.Fqdn(strings.ToLower(zone))

	if qname == zoneFQDN {
		return inZoneNoFilter, ""
	}
	if !strings.HasSuffix(qname, "."+zoneFQDN) {
		return outsideZone, ""
	}

	prefix := strings.TrimSuffix(qname, "."+zoneFQDN)
	// Only a single label is recognized as a subnetwork filter; anything
	// with additional labels in front of it is still "in zone" but not a
	// filter this responder understands.
	if strings.Contains(prefix, ".") {
		return inZoneUnparseablePrefix, ""
	}
	if !subnetworkLabelRe.MatchString(prefix) {
		return inZoneUnparseablePrefix, ""
	}
	return inZoneFiltered, strings.ToLower(prefix[1:])
}
