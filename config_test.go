package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseArgs(extra ...string) []string {
	args := []string{"--host=seed.example.com.", "--nameserver=ns.example.com."}
	return append(args, extra...)
}

func TestLoadConfigRequiresHostAndNameserver(t *testing.T) {
	_, err := loadConfig(nil)
	assert.Error(t, err)

	_, err = loadConfig([]string{"--nameserver=ns.example.com."})
	assert.Error(t, err)

	_, err = loadConfig([]string{"--host=seed.example.com."})
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	lcfg, err := loadConfig(baseArgs())
	require.NoError(t, err)
	assert.Equal(t, defaultListen, lcfg.cfg.Listen)
	assert.Equal(t, defaultThreads, lcfg.cfg.Threads)
	assert.Equal(t, "mainnet", lcfg.netParams.Name)
}

func TestLoadConfigTestnetFlag(t *testing.T) {
	lcfg, err := loadConfig(baseArgs("--testnet"))
	require.NoError(t, err)
	assert.Equal(t, "testnet-11", lcfg.netParams.Name)
}

func TestLoadConfigRejectsOutOfRangeThreads(t *testing.T) {
	_, err := loadConfig(baseArgs("--threads=0"))
	assert.Error(t, err)

	_, err = loadConfig(baseArgs("--threads=33"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadNetSuffix(t *testing.T) {
	_, err := loadConfig(baseArgs("--net_suffix=7"))
	assert.Error(t, err)
}

func TestLoadConfigParsesKnownPeersWithAndWithoutPort(t *testing.T) {
	lcfg, err := loadConfig(baseArgs("--known_peers=8.8.8.8:16111,8.8.4.4"))
	require.NoError(t, err)
	require.Len(t, lcfg.knownPeers, 2)
	assert.Equal(t, uint16(16111), lcfg.knownPeers[0].Port)
	assert.Equal(t, uint16(16111), lcfg.knownPeers[1].Port) // paired with mainnet default port
}

func TestResolveHostOrHostPortBareIPv6(t *testing.T) {
	a, err := resolveHostOrHostPort("2001:db8::1", 16111)
	require.NoError(t, err)
	assert.Equal(t, uint16(16111), a.Port)
	assert.False(t, a.IsIPv4())
}

func TestResolveHostOrHostPortBracketedIPv6WithPort(t *testing.T) {
	a, err := resolveHostOrHostPort("[2001:db8::1]:16311", 16111)
	require.NoError(t, err)
	assert.Equal(t, uint16(16311), a.Port)
}

func TestResolveHostOrHostPortBareHostNoPort(t *testing.T) {
	a, err := resolveHostOrHostPort("8.8.8.8", 16111)
	require.NoError(t, err)
	assert.Equal(t, uint16(16111), a.Port)
}
