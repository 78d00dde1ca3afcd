package addrmgr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrKeyNormalizesV4InV6(t *testing.T) {
	plain := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	mapped := NewAddr(net.ParseIP("::ffff:8.8.8.8"), 16111)
	assert.Equal(t, plain.Key(), mapped.Key())
}

func TestAddrKeyDistinguishesPort(t *testing.T) {
	a := NewAddr(net.ParseIP("8.8.8.8"), 16111)
	b := NewAddr(net.ParseIP("8.8.8.8"), 16112)
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestParseAddrRequiresPort(t *testing.T) {
	_, err := ParseAddr("8.8.8.8")
	assert.Error(t, err)
}

func TestParseAddrRoundTrip(t *testing.T) {
	a, err := ParseAddr("8.8.8.8:16111")
	require.NoError(t, err)
	assert.Equal(t, uint16(16111), a.Port)
	assert.True(t, a.IsIPv4())
	assert.Equal(t, "8.8.8.8:16111", a.String())
}

func TestParseAddrIPv6Bracketed(t *testing.T) {
	a, err := ParseAddr("[2607:f8b0::1]:16111")
	require.NoError(t, err)
	assert.False(t, a.IsIPv4())
}
