// Package wire implements the binary formats spoken on the robot's command
// and telemetry channels. The layouts are a firmware contract: every byte,
// including the sign flips and field ordering in the drive commands, must be
// reproduced exactly as the robot expects them.
package wire

import (
	"encoding/binary"
	"net"
)

// Command ids, byte 0 of every encoded command.
const (
	CmdNop        = 0 // sentinel: never transmitted
	CmdPowerOff   = 1
	CmdMove       = 2
	CmdMoveWheels = 3
	CmdPollAll    = 16
	CmdPollSensor = 17
	CmdStreamOn   = 18
	CmdStreamOff  = 19
)

// Command is a robot command with a fixed binary encoding. A nil or empty
// encoding, or one starting with CmdNop, is the no-op sentinel: it must not
// be transmitted and yields an empty reply.
type Command interface {
	Encode() []byte
}

// IsNop reports whether an encoded command is the no-op sentinel.
func IsNop(b []byte) bool {
	return len(b) == 0 || b[0] == CmdNop
}

// PowerOff shuts the robot down.
type PowerOff struct{}

func (PowerOff) Encode() []byte { return []byte{CmdPowerOff} }

// Move drives the robot at the given velocities. VelX and VelY are
// millimetres per second, Rot degrees per second.
type Move struct {
	VelX int16
	VelY int16
	Rot  int16
}

// Encode emits [id, vx, vy, -rot] with int16 little-endian fields. The
// negated rotation is required by the firmware.
func (m Move) Encode() []byte {
	b := make([]byte, 7)
	b[0] = CmdMove
	binary.LittleEndian.PutUint16(b[1:3], uint16(m.VelX))
	binary.LittleEndian.PutUint16(b[3:5], uint16(m.VelY))
	binary.LittleEndian.PutUint16(b[5:7], uint16(-m.Rot))
	return b
}

// MoveWheels drives the four wheels individually.
type MoveWheels struct {
	NE int16
	NW int16
	SW int16
	SE int16
}

// Encode emits [id, -se, sw, -ne, nw] with int16 little-endian fields. The
// ordering and the negation of only the east-side wheels match the firmware
// exactly; do not "fix" the asymmetry.
func (m MoveWheels) Encode() []byte {
	b := make([]byte, 9)
	b[0] = CmdMoveWheels
	binary.LittleEndian.PutUint16(b[1:3], uint16(-m.SE))
	binary.LittleEndian.PutUint16(b[3:5], uint16(m.SW))
	binary.LittleEndian.PutUint16(b[5:7], uint16(-m.NE))
	binary.LittleEndian.PutUint16(b[7:9], uint16(m.NW))
	return b
}

// PollAll requests a reading from every sensor.
type PollAll struct{}

func (PollAll) Encode() []byte { return []byte{CmdPollAll} }

// PollSensor requests a reading from a single sensor.
type PollSensor struct {
	Sensor SensorID
}

func (p PollSensor) Encode() []byte { return []byte{CmdPollSensor, byte(p.Sensor)} }

// StreamOn asks the robot to stream telemetry to Host:Port every Period
// milliseconds.
type StreamOn struct {
	Host   string
	Port   uint16
	Period uint16
}

// Encode emits [id, octet0..octet3, port, period] with the IPv4 octets in
// address order and uint16 little-endian port and period. An unparseable or
// non-IPv4 host encodes to the no-op sentinel so it is never transmitted.
func (s StreamOn) Encode() []byte {
	ip := net.ParseIP(s.Host)
	if ip != nil {
		ip = ip.To4()
	}
	if ip == nil {
		return nil
	}
	b := make([]byte, 9)
	b[0] = CmdStreamOn
	copy(b[1:5], ip)
	binary.LittleEndian.PutUint16(b[5:7], s.Port)
	binary.LittleEndian.PutUint16(b[7:9], s.Period)
	return b
}

// StreamOff asks the robot to stop streaming telemetry.
type StreamOff struct{}

func (StreamOff) Encode() []byte { return []byte{CmdStreamOff} }
