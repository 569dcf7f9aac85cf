package link

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/durin-robotics/durin/internal/monitoring"
	"github.com/durin-robotics/durin/internal/runnable"
	"github.com/durin-robotics/durin/internal/wire"
)

// DefaultTelemetryQueueCap buffers decoded telemetry packets between the
// UDP receiver and the sensor aggregator.
const DefaultTelemetryQueueCap = 100

// UDPConfig configures a telemetry link. Zero fields take defaults; a zero
// Port binds an ephemeral port (useful in tests).
type UDPConfig struct {
	Port         int
	QueueCap     int
	ReadDeadline time.Duration
	RcvBuf       int
}

// UDPLink receives telemetry datagrams from the robot. A single producer
// worker reads the socket, decodes each datagram and enqueues the result.
// Malformed datagrams and queue overflow are counted and dropped; neither
// ever surfaces as an error.
type UDPLink struct {
	conn   *net.UDPConn
	queue  *runnable.Queue[wire.Packet]
	worker *runnable.Producer[wire.Packet]

	deadline  time.Duration
	received  atomic.Uint64
	malformed atomic.Uint64
	stopOnce  sync.Once
}

// NewUDPLink binds the local telemetry port.
func NewUDPLink(cfg UDPConfig) (*UDPLink, error) {
	if cfg.QueueCap == 0 {
		cfg.QueueCap = DefaultTelemetryQueueCap
	}
	if cfg.ReadDeadline == 0 {
		cfg.ReadDeadline = DefaultReadDeadline
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve telemetry address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind telemetry port %d: %w", cfg.Port, err)
	}
	if cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(cfg.RcvBuf); err != nil {
			monitoring.Logf("udp link: failed to set receive buffer to %d: %v", cfg.RcvBuf, err)
		}
	}
	monitoring.Logf("udp link: telemetry receiving on %s", conn.LocalAddr())

	l := &UDPLink{
		conn:     conn,
		queue:    runnable.NewQueue[wire.Packet](cfg.QueueCap),
		deadline: cfg.ReadDeadline,
	}
	l.worker = runnable.NewProducer("udp-receiver", l.queue, l.receive)
	return l, nil
}

func (l *UDPLink) receive() (wire.Packet, bool) {
	l.conn.SetReadDeadline(time.Now().Add(l.deadline))
	buf := make([]byte, maxMessage)
	n, _, err := l.conn.ReadFromUDP(buf)
	if err != nil {
		return wire.Packet{}, false
	}
	l.received.Add(1)
	pkt, err := wire.Decode(buf[:n])
	if err != nil {
		// Drop the datagram whole; prior aggregate state stays intact.
		l.malformed.Add(1)
		return wire.Packet{}, false
	}
	return pkt, true
}

// Start launches the receiver worker.
func (l *UDPLink) Start() {
	l.worker.Start()
}

// Queue exposes the decoded-packet queue for the aggregator to consume.
func (l *UDPLink) Queue() *runnable.Queue[wire.Packet] {
	return l.queue
}

// Read pops one decoded packet. ok is false when nothing has arrived.
func (l *UDPLink) Read() (p wire.Packet, ok bool) {
	return l.queue.TryGet()
}

// LocalPort reports the bound port, which differs from the configured one
// when an ephemeral port was requested.
func (l *UDPLink) LocalPort() int {
	return l.conn.LocalAddr().(*net.UDPAddr).Port
}

// Stats reports how many datagrams arrived and how many failed to decode.
func (l *UDPLink) Stats() (received, malformed uint64) {
	return l.received.Load(), l.malformed.Load()
}

// Stop closes the socket, closes the queue and stops the worker. Safe to
// call more than once.
func (l *UDPLink) Stop() {
	l.stopOnce.Do(func() {
		if err := l.conn.Close(); err != nil {
			monitoring.Logf("udp link: close failed: %v", err)
		}
		l.queue.Close()
		l.worker.Stop()
		monitoring.Logf("udp link: telemetry channel stopped")
	})
}
