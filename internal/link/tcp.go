// Package link provides the network channels between the host and the
// robot: a bidirectional TCP command link and a receive-only UDP telemetry
// link. Both move bytes through bounded queues driven by runnable workers,
// dropping on overflow rather than blocking — the caller always prefers a
// fresh reading over a complete history.
package link

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/durin-robotics/durin/internal/monitoring"
	"github.com/durin-robotics/durin/internal/runnable"
	"github.com/durin-robotics/durin/internal/wire"
)

const (
	// DefaultSendQueueCap holds at most two in-flight commands; anything
	// older than that is stale by the time the robot would act on it.
	DefaultSendQueueCap = 2

	// DefaultRecvQueueCap buffers replies and telemetry.
	DefaultRecvQueueCap = 100

	// DefaultReadDeadline bounds each socket read so the worker loop can
	// observe a stop request.
	DefaultReadDeadline = 100 * time.Millisecond

	// maxMessage is the largest read issued against the command socket.
	maxMessage = 512
)

// TCPConfig configures a command link. Zero fields take the defaults above.
type TCPConfig struct {
	Host         string
	Port         int
	SendQueueCap int
	RecvQueueCap int
	ReadDeadline time.Duration
}

// TCPLink is the bidirectional command channel to the robot. A consumer
// worker drains the send queue into the socket; a producer worker fills the
// receive queue from it. Sends are fire-and-forget: a full send queue drops
// the command silently.
type TCPLink struct {
	conn     *net.TCPConn
	sendQ    *runnable.Queue[[]byte]
	recvQ    *runnable.Queue[[]byte]
	sender   *runnable.Consumer[[]byte]
	receiver *runnable.Producer[[]byte]

	deadline time.Duration
	stopOnce sync.Once
}

// NewTCPLink dials the robot's command port. The connection is established
// synchronously and an unreachable peer fails fast; this layer never
// retries.
func NewTCPLink(cfg TCPConfig) (*TCPLink, error) {
	if cfg.SendQueueCap == 0 {
		cfg.SendQueueCap = DefaultSendQueueCap
	}
	if cfg.RecvQueueCap == 0 {
		cfg.RecvQueueCap = DefaultRecvQueueCap
	}
	if cfg.ReadDeadline == 0 {
		cfg.ReadDeadline = DefaultReadDeadline
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	raddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve robot address %s: %w", addr, err)
	}
	conn, err := net.DialTCP("tcp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("cannot reach robot at %s: %w", addr, err)
	}

	l := &TCPLink{
		conn:     conn,
		sendQ:    runnable.NewQueue[[]byte](cfg.SendQueueCap),
		recvQ:    runnable.NewQueue[[]byte](cfg.RecvQueueCap),
		deadline: cfg.ReadDeadline,
	}
	l.sender = runnable.NewConsumer("tcp-sender", l.sendQ, l.writeFrame)
	l.receiver = runnable.NewProducer("tcp-receiver", l.recvQ, l.readFrame)
	return l, nil
}

func (l *TCPLink) writeFrame(b []byte) {
	if _, err := l.conn.Write(b); err != nil {
		monitoring.Logf("tcp link: write failed: %v", err)
	}
}

func (l *TCPLink) readFrame() ([]byte, bool) {
	l.conn.SetReadDeadline(time.Now().Add(l.deadline))
	buf := make([]byte, maxMessage)
	n, err := l.conn.Read(buf)
	if err != nil {
		// Timeouts just mean the robot had nothing to say; other errors
		// (including a closed socket during shutdown) idle the loop too.
		return nil, false
	}
	return buf[:n], true
}

// Start launches the sender and receiver workers.
func (l *TCPLink) Start() {
	l.sender.Start()
	l.receiver.Start()
}

// Send enqueues an encoded command, waiting at most timeout for queue room.
// The no-op sentinel short-circuits before any I/O. A full queue drops the
// command: the caller is never blocked and never sees an error.
func (l *TCPLink) Send(b []byte, timeout time.Duration) {
	if wire.IsNop(b) {
		return
	}
	if !l.sendQ.PutTimeout(b, timeout) {
		monitoring.Logf("tcp link: send queue full, dropping command %d", b[0])
	}
}

// Read pops one reply frame off the receive queue. ok is false when nothing
// has arrived.
func (l *TCPLink) Read() (b []byte, ok bool) {
	return l.recvQ.TryGet()
}

// Stop tears the link down: socket first (which unblocks any in-flight
// read), then the queues, then the workers. Safe to call more than once.
func (l *TCPLink) Stop() {
	l.stopOnce.Do(func() {
		if err := l.conn.Close(); err != nil {
			monitoring.Logf("tcp link: close failed: %v", err)
		}
		l.recvQ.Close()
		l.sendQ.Close()
		l.sender.Stop()
		l.receiver.Stop()
		monitoring.Logf("tcp link: command channel stopped")
	})
}
