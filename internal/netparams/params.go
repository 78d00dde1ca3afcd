// Package netparams holds the closed set of network parameters the seeder
// can be configured for, mirroring the kaspad dagconfig.Params pattern the
// teacher depended on before the wire protocol was reimplemented locally.
package netparams

import "fmt"

// Params describes one network the seeder can crawl.
type Params struct {
	// Name is a human-readable identifier, used in logs.
	Name string

	// NetID is the network identifier advertised and checked during the
	// handshake (see internal/probe). A peer advertising a different
	// NetID is Rejected.
	NetID string

	// DefaultPort is the canonical P2P port for this network. Addresses
	// learned on any other port are never promoted to Good (I4).
	DefaultPort uint16

	// DNSSeeds is the small, fixed list of external hostnames Seed
	// Discovery resolves at startup and periodically thereafter.
	DNSSeeds []string
}

// Mainnet parameters.
var Mainnet = Params{
	Name:        "mainnet",
	NetID:       "kaspa-mainnet",
	DefaultPort: 16111,
	DNSSeeds: []string{
		"mainnet-dnsseed.daglabs-dev.com",
		"seeder1-mainnet.kaspad.net",
		"seeder2-mainnet.kaspad.net",
	},
}

// Testnet11 parameters.
var Testnet11 = Params{
	Name:        "testnet-11",
	NetID:       "kaspa-testnet-11",
	DefaultPort: 16311,
	DNSSeeds: []string{
		"testnet-11-dnsseed.daglabs-dev.com",
		"seeder1-testnet-11.kaspad.net",
	},
}

// ForSuffix resolves a net_suffix configuration value into its Params. Only
// 0 (mainnet) and 11 (testnet-11) are accepted; any other value is a
// configuration error, per spec.md §6.
func ForSuffix(suffix int) (Params, error) {
	switch suffix {
	case 0:
		return Mainnet, nil
	case 11:
		return Testnet11, nil
	default:
		return Params{}, fmt.Errorf("unsupported net_suffix %d: only 0 (mainnet) and 11 (testnet-11) are accepted", suffix)
	}
}
