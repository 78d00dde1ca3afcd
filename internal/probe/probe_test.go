package probe

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
)

// fakePeer speaks one full handshake + optional addr reply, then closes.
func fakePeer(t *testing.T, ln net.Listener, peerVersion versionPayload, replyAddrs []addrEntry) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := readMessage(conn); err != nil {
			return
		}
		if err := writeMessage(conn, cmdVersion, peerVersion); err != nil {
			return
		}
		if _, _, err := readMessage(conn); err != nil {
			return
		}
		if err := writeMessage(conn, cmdVerAck, struct{}{}); err != nil {
			return
		}

		cmd, _, err := readMessage(conn)
		if err != nil || cmd != cmdGetAddr {
			return
		}
		if replyAddrs != nil {
			_ = writeMessage(conn, cmdAddr, addrPayload{Addresses: replyAddrs})
		}
	}()
}

func testConfig() Config {
	cfg := DefaultConfig("kaspa-mainnet", 1, 1)
	cfg.ConnectTimeout = time.Second
	cfg.HandshakeTimeout = time.Second
	cfg.AddressResponseTimeout = time.Second
	return cfg
}

func TestProbeOkHarvestsAddresses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	fakePeer(t, ln, versionPayload{
		ProtocolVersion: 1,
		NetworkID:       "kaspa-mainnet",
		UserAgent:       "other-impl/1.0",
		SubnetworkID:    addrmgr.SubnetworkUnknown,
	}, []addrEntry{{IP: "8.8.8.8", Port: 16111}})

	p := NewTCPProber(testConfig(), nil)
	addr := addrFromListener(t, ln)
	v := p.Probe(addr)

	require.Equal(t, Ok, v.Outcome)
	require.Len(t, v.Harvested, 1)
	assert.Equal(t, "8.8.8.8", v.Harvested[0].IP.String())
}

func TestProbeRejectsNetworkMismatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	fakePeer(t, ln, versionPayload{
		ProtocolVersion: 1,
		NetworkID:       "kaspa-testnet-11",
	}, nil)

	p := NewTCPProber(testConfig(), nil)
	v := p.Probe(addrFromListener(t, ln))
	assert.Equal(t, Rejected, v.Outcome)
}

func TestProbeUnreachableOnConnectFailure(t *testing.T) {
	p := NewTCPProber(testConfig(), nil)
	v := p.Probe(addrmgr.NewAddr(net.ParseIP("127.0.0.1"), 1))
	assert.Equal(t, Unreachable, v.Outcome)
}

func addrFromListener(t *testing.T, ln net.Listener) addrmgr.Addr {
	t.Helper()
	tcpAddr := ln.Addr().(*net.TCPAddr)
	return addrmgr.NewAddr(tcpAddr.IP, uint16(tcpAddr.Port))
}
