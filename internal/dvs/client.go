package dvs

import (
	"fmt"
	"net"
	"sync"

	"github.com/durin-robotics/durin/internal/monitoring"
)

// Client drives a remote control server from the host side. The connection
// is established lazily on the first message and re-established once when a
// write fails against a dead socket.
type Client struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewClient builds a client for the sidecar's control endpoint. No
// connection is attempted until the first message.
func NewClient(host string, port int) *Client {
	return &Client{addr: net.JoinHostPort(host, fmt.Sprint(port))}
}

// StartStream asks the sidecar to stream events to host:port.
func (c *Client) StartStream(host string, port int) error {
	msg, err := EncodeStart(host, port)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// StopStream asks the sidecar to stop streaming and drops the control
// connection. Calling it without an open connection is a no-op.
func (c *Client) StopStream() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write(EncodeStop()); err != nil {
		monitoring.Logf("dvs client: stop message failed: %v", err)
	}
	c.conn.Close()
	c.conn = nil
}

func (c *Client) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return err
		}
	}
	if _, err := c.conn.Write(msg); err != nil {
		// One reconnect attempt against a stale socket, then give up.
		c.conn.Close()
		c.conn = nil
		if err := c.connectLocked(); err != nil {
			return err
		}
		if _, err := c.conn.Write(msg); err != nil {
			return fmt.Errorf("dvs client: write to %s failed: %w", c.addr, err)
		}
	}
	return nil
}

func (c *Client) connectLocked() error {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("could not connect to DVS controller at %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}
