package dvs

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/durin-robotics/durin/internal/monitoring"
)

// DefaultPort is the control-plane listen port on the sidecar.
const DefaultPort = 2301

// defaultJoinWait bounds how long accepting a new connection waits for the
// previous connection's handler to exit before abandoning it.
const defaultJoinWait = time.Second

// Server accepts control connections and runs a small state machine per
// connection: a start message begins a stream via the Streamer, a stop
// message, read error or disconnect ends it. Accepting a new connection
// always preempts the previous one — last connection wins.
type Server struct {
	ln       net.Listener
	streamer Streamer
	joinWait time.Duration

	mu       sync.Mutex
	prevConn net.Conn
	prevDone chan struct{}

	closeOnce sync.Once
}

// NewServer starts listening on the given port. Binding failures propagate.
func NewServer(port int, streamer Streamer) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on control port %d: %w", port, err)
	}
	monitoring.Logf("dvs: control server listening on %s", ln.Addr())
	return &Server{ln: ln, streamer: streamer, joinWait: defaultJoinWait}, nil
}

// Addr reports the bound listen address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until Close. Each accepted connection is
// handled in its own goroutine after the previous one has been stopped and
// joined.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			// Accept fails once the listener is closed; that is the
			// shutdown path, not an error worth surfacing twice.
			return err
		}
		id := uuid.NewString()[:8]
		monitoring.Logf("dvs: new control connection %s from %s", id, conn.RemoteAddr())
		s.preempt()

		done := make(chan struct{})
		s.mu.Lock()
		s.prevConn = conn
		s.prevDone = done
		s.mu.Unlock()

		go s.handle(conn, id, done)
	}
}

// preempt stops any active stream and tears down the previous connection's
// handler, waiting a bounded interval for it to exit.
func (s *Server) preempt() {
	s.mu.Lock()
	conn := s.prevConn
	done := s.prevDone
	s.prevConn = nil
	s.prevDone = nil
	s.mu.Unlock()

	s.streamer.StopStream()
	if conn == nil {
		return
	}
	conn.Close()
	select {
	case <-done:
	case <-time.After(s.joinWait):
		monitoring.Logf("dvs: previous connection handler did not exit within %v, abandoning", s.joinWait)
	}
}

// session is the per-connection streaming state: idle, or streaming to a
// destination.
type session struct {
	streaming bool
	host      string
	port      int
}

// handle runs the per-connection state machine.
func (s *Server) handle(conn net.Conn, id string, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	var sess session
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			// Disconnect or read error: an active stream must not
			// outlive its controlling connection.
			if sess.streaming {
				s.streamer.StopStream()
			}
			monitoring.Logf("dvs: connection %s closed: %v", id, err)
			return
		}
		msg, err := ParseMessage(buf[:n])
		if err != nil {
			monitoring.Logf("dvs: connection %s sent a bad message, dropping connection: %v", id, err)
			if sess.streaming {
				s.streamer.StopStream()
			}
			return
		}
		if msg.Start {
			monitoring.Logf("dvs: connection %s starting stream to %s:%d", id, msg.Host, msg.Port)
			if err := s.streamer.StartStream(msg.Host, msg.Port); err != nil {
				monitoring.Logf("dvs: streamer unavailable: %v", err)
				continue
			}
			sess = session{streaming: true, host: msg.Host, port: msg.Port}
		} else {
			if sess.streaming {
				monitoring.Logf("dvs: connection %s stopping stream to %s:%d", id, sess.host, sess.port)
			}
			s.streamer.StopStream()
			sess = session{}
		}
	}
}

// Close stops accepting, stops any active stream and joins the live
// handler. Safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()
		s.preempt()
		monitoring.Logf("dvs: control server stopped")
	})
	return err
}
