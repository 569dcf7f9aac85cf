// Package actuator dispatches typed commands onto the robot's command link
// and decodes whatever the robot sends back.
package actuator

import (
	"time"

	"github.com/durin-robotics/durin/internal/wire"
)

// DefaultTimeout bounds how long a dispatch waits for send-queue room
// before dropping the command.
const DefaultTimeout = 50 * time.Millisecond

// CommandLink is the transport the actuator writes to, satisfied by
// link.TCPLink.
type CommandLink interface {
	Send(b []byte, timeout time.Duration)
	Read() (b []byte, ok bool)
}

// Actuator encodes commands and hands them to the link. Dispatch is
// fire-and-forget: a saturated link drops the command rather than blocking
// or erroring, so a fresh command is never queued behind stale ones.
type Actuator struct {
	link    CommandLink
	timeout time.Duration
}

// New builds an actuator over a command link. A zero timeout takes
// DefaultTimeout.
func New(link CommandLink, timeout time.Duration) *Actuator {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Actuator{link: link, timeout: timeout}
}

// Do encodes and dispatches one command with the default timeout. The no-op
// sentinel (empty encoding or command id 0) short-circuits before any
// network I/O.
func (a *Actuator) Do(cmd wire.Command) {
	a.DoTimeout(cmd, a.timeout)
}

// DoTimeout is Do with an explicit send timeout.
func (a *Actuator) DoTimeout(cmd wire.Command, timeout time.Duration) {
	b := cmd.Encode()
	if wire.IsNop(b) {
		return
	}
	a.link.Send(b, timeout)
}

// Read drains one reply frame from the link and decodes it as a telemetry
// packet. ok is false when no reply has arrived; a malformed reply is
// dropped and reported the same way.
func (a *Actuator) Read() (p wire.Packet, ok bool) {
	b, ok := a.link.Read()
	if !ok {
		return wire.Packet{}, false
	}
	p, err := wire.Decode(b)
	if err != nil {
		return wire.Packet{}, false
	}
	return p, true
}
