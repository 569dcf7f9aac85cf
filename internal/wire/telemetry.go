package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// SensorID identifies the source of a telemetry datagram. The values match
// the firmware's sensor table: four time-of-flight arrays and one
// miscellaneous packet carrying battery and IMU data.
type SensorID uint8

const (
	SensorTofA SensorID = 1
	SensorTofB SensorID = 2
	SensorTofC SensorID = 3
	SensorTofD SensorID = 4
	SensorMisc SensorID = 5
)

// String returns the firmware name for the sensor id.
func (s SensorID) String() string {
	switch s {
	case SensorTofA:
		return "tof_a"
	case SensorTofB:
		return "tof_b"
	case SensorTofC:
		return "tof_c"
	case SensorTofD:
		return "tof_d"
	case SensorMisc:
		return "misc"
	}
	return fmt.Sprintf("sensor(%d)", uint8(s))
}

const (
	// TofWords is the number of depth readings in one TOF datagram: two
	// interleaved 8x8 slices.
	TofWords = 2 * 8 * 8

	// TofPacketLen is the wire size of a TOF datagram: id byte plus
	// TofWords uint16 little-endian millimetre readings.
	TofPacketLen = 1 + 2*TofWords

	// MiscPacketLen is the wire size of a misc datagram: id byte, float32
	// charge, float32 voltage and nine float32 row-major IMU values.
	MiscPacketLen = 1 + 4*(2+9)
)

// ErrMalformedPacket is returned for datagrams that are shorter than their
// sensor id requires or that carry an unknown id. Malformed datagrams are
// dropped whole; no prefix is ever applied to aggregate state.
var ErrMalformedPacket = errors.New("malformed telemetry packet")

// TofPayload holds two consecutive 8x8 depth slices in millimetres.
type TofPayload struct {
	Depth [TofWords]float32
}

// MiscPayload holds battery metrics and the 3x3 IMU matrix in row-major
// order.
type MiscPayload struct {
	Charge  float32
	Voltage float32
	IMU     [9]float32
}

// Packet is one decoded telemetry datagram. Exactly one of Tof and Misc is
// set, according to Sensor.
type Packet struct {
	Sensor SensorID
	Tof    *TofPayload
	Misc   *MiscPayload
}

// Decode parses a raw telemetry datagram. Trailing bytes beyond the fixed
// payload are ignored.
func Decode(b []byte) (Packet, error) {
	if len(b) == 0 {
		return Packet{}, fmt.Errorf("%w: empty datagram", ErrMalformedPacket)
	}
	id := SensorID(b[0])
	switch id {
	case SensorTofA, SensorTofB, SensorTofC, SensorTofD:
		if len(b) < TofPacketLen {
			return Packet{}, fmt.Errorf("%w: %s datagram is %d bytes, need %d", ErrMalformedPacket, id, len(b), TofPacketLen)
		}
		p := &TofPayload{}
		for i := 0; i < TofWords; i++ {
			p.Depth[i] = float32(binary.LittleEndian.Uint16(b[1+2*i:]))
		}
		return Packet{Sensor: id, Tof: p}, nil

	case SensorMisc:
		if len(b) < MiscPacketLen {
			return Packet{}, fmt.Errorf("%w: misc datagram is %d bytes, need %d", ErrMalformedPacket, len(b), MiscPacketLen)
		}
		p := &MiscPayload{
			Charge:  math.Float32frombits(binary.LittleEndian.Uint32(b[1:])),
			Voltage: math.Float32frombits(binary.LittleEndian.Uint32(b[5:])),
		}
		for i := 0; i < 9; i++ {
			p.IMU[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[9+4*i:]))
		}
		return Packet{Sensor: id, Misc: p}, nil
	}
	return Packet{}, fmt.Errorf("%w: unknown sensor id %d", ErrMalformedPacket, b[0])
}
