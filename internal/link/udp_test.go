package link

import (
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durin-robotics/durin/internal/wire"
)

func newTelemetryLink(t *testing.T) *UDPLink {
	t.Helper()
	l, err := NewUDPLink(UDPConfig{Port: 0})
	require.NoError(t, err)
	t.Cleanup(l.Stop)
	return l
}

func sendDatagram(t *testing.T, port int, b []byte) {
	t.Helper()
	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(b)
	require.NoError(t, err)
}

func tofDatagram(id wire.SensorID, fill uint16) []byte {
	b := make([]byte, wire.TofPacketLen)
	b[0] = byte(id)
	for i := 0; i < wire.TofWords; i++ {
		binary.LittleEndian.PutUint16(b[1+2*i:], fill)
	}
	return b
}

func TestUDPLinkReceivesAndDecodes(t *testing.T) {
	l := newTelemetryLink(t)
	l.Start()

	sendDatagram(t, l.LocalPort(), tofDatagram(wire.SensorTofC, 500))

	var pkt wire.Packet
	require.Eventually(t, func() bool {
		p, ok := l.Read()
		if ok {
			pkt = p
		}
		return ok
	}, time.Second, time.Millisecond)

	assert.Equal(t, wire.SensorTofC, pkt.Sensor)
	require.NotNil(t, pkt.Tof)
	assert.Equal(t, float32(500), pkt.Tof.Depth[0])
}

func TestUDPLinkDropsMalformed(t *testing.T) {
	l := newTelemetryLink(t)
	l.Start()

	sendDatagram(t, l.LocalPort(), []byte{99, 1, 2, 3})

	require.Eventually(t, func() bool {
		_, malformed := l.Stats()
		return malformed == 1
	}, time.Second, time.Millisecond)

	if _, ok := l.Read(); ok {
		t.Fatal("malformed datagram reached the queue")
	}
}

func TestUDPLinkStopIdempotent(t *testing.T) {
	l := newTelemetryLink(t)
	l.Start()
	l.Stop()
	l.Stop()
}
