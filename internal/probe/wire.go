// Package probe implements the short, stateless P2P handshake §4.2
// describes. Since the upstream kaspad wire protocol is not fetchable in
// this exercise (the teacher's go.mod only reaches it through a local
// `replace ../kaspad` that has no target here), this package speaks a
// small self-contained framed message format of its own: a fixed-width
// command header (mirroring the btcsuite/kaspad wire.MessageHeader shape)
// followed by a length-prefixed JSON payload. It exists only to let the
// Probe exercise a real handshake exchange end to end; nothing outside
// this package needs to know the wire format.
package probe

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kaspa-ng/dnsseeder/internal/logging"
)

// magic distinguishes this protocol from unrelated traffic on the wire,
// the way every wire.MessageHeader in the btcsuite/kaspad lineage starts
// with a network magic.
const magic uint32 = 0x4b41_5350 // "KASP"

const cmdSize = 12

const (
	cmdVersion = "version"
	cmdVerAck  = "verack"
	cmdGetAddr = "getaddr"
	cmdAddr    = "addr"
)

// maxPayloadSize bounds a single message so a misbehaving or malicious peer
// cannot force an unbounded allocation while we wait on address_response.
const maxPayloadSize = 1 << 20

// versionPayload is the handshake's own version message: own advertised
// version, network ID, a locally generated nonce, current time, and user
// agent, per §4.2's protocol outline.
type versionPayload struct {
	ProtocolVersion uint32 `json:"protocol_version"`
	NetworkID       string `json:"network_id"`
	Nonce           uint64 `json:"nonce"`
	Timestamp       int64  `json:"timestamp"`
	UserAgent       string `json:"user_agent"`
	SubnetworkID    string `json:"subnetwork_id"`
}

// addrEntry is one address volunteered in an addr reply.
type addrEntry struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

type addrPayload struct {
	Addresses []addrEntry `json:"addresses"`
}

// writeMessage frames and writes one message: magic, fixed-width command,
// payload length, JSON payload.
func writeMessage(w io.Writer, command string, payload interface{}) error {
	if len(command) > cmdSize {
		return fmt.Errorf("command %q exceeds %d bytes", command, cmdSize)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if len(body) > maxPayloadSize {
		return fmt.Errorf("payload of %d bytes exceeds max %d", len(body), maxPayloadSize)
	}

	var header [4 + cmdSize + 4]byte
	binary.BigEndian.PutUint32(header[0:4], magic)
	copy(header[4:4+cmdSize], command)
	binary.BigEndian.PutUint32(header[4+cmdSize:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readMessage reads one framed message and returns its command and raw
// JSON payload bytes for the caller to unmarshal into the expected type.
func readMessage(r io.Reader) (command string, payload []byte, err error) {
	var header [4 + cmdSize + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", nil, err
	}
	if got := binary.BigEndian.Uint32(header[0:4]); got != magic {
		logging.Log().Debug("rejecting message with bad magic", zap.Uint32("magic", got))
		return "", nil, fmt.Errorf("bad magic %#x", got)
	}
	command = trimCommand(header[4 : 4+cmdSize])
	length := binary.BigEndian.Uint32(header[4+cmdSize:])
	if length > maxPayloadSize {
		logging.Log().Debug("rejecting oversized payload", zap.String("command", command), zap.Uint32("length", length))
		return "", nil, fmt.Errorf("payload length %d exceeds max %d", length, maxPayloadSize)
	}
	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", nil, err
	}
	return command, payload, nil
}

func trimCommand(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
