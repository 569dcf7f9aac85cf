// Package dvs implements the control plane for the event-camera streaming
// sidecar: the wire protocol, the per-connection state machine, the
// listening server and the client used by the host to drive a remote
// sidecar. Media production itself lives behind the Streamer interface.
package dvs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// Control message type, byte 0. Zero means start streaming; any other value
// means stop.
const msgStart = 0

// ErrShortMessage is returned for a start message without a full
// destination address.
var ErrShortMessage = errors.New("dvs: start message too short")

// Message is one decoded control message.
type Message struct {
	Start bool

	// Destination for the stream; only set on start messages.
	Host string
	Port int
}

// ParseMessage decodes a control message. Start carries a 4-byte
// little-endian IPv4 address and a little-endian uint16 port; trailing
// bytes are ignored. Any non-zero leading byte is a stop regardless of
// payload.
func ParseMessage(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, errors.New("dvs: empty message")
	}
	if b[0] != msgStart {
		return Message{Start: false}, nil
	}
	if len(b) < 7 {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(b))
	}
	// The address rides the wire as a little-endian integer, so the octets
	// arrive reversed.
	ip := net.IPv4(b[4], b[3], b[2], b[1])
	port := int(binary.LittleEndian.Uint16(b[5:7]))
	return Message{Start: true, Host: ip.String(), Port: port}, nil
}

// EncodeStart builds the start message for the given destination. A host
// that does not parse as IPv4 yields an error.
func EncodeStart(host string, port int) ([]byte, error) {
	ip := net.ParseIP(host)
	if ip != nil {
		ip = ip.To4()
	}
	if ip == nil {
		return nil, fmt.Errorf("dvs: %q is not an IPv4 address", host)
	}
	b := make([]byte, 7)
	b[0] = msgStart
	b[1], b[2], b[3], b[4] = ip[3], ip[2], ip[1], ip[0]
	binary.LittleEndian.PutUint16(b[5:7], uint16(port))
	return b, nil
}

// EncodeStop builds the stop message.
func EncodeStop() []byte {
	return []byte{1}
}
