// Package sensor folds decoded telemetry into the shared aggregate the rest
// of the host reads: an 8x8x8 depth volume from the four TOF arrays, the
// 3x3 IMU matrix, battery metrics and an update-frequency estimate.
//
// The aggregate is owned by a single consumer worker; any number of readers
// may take snapshots concurrently. Fields are last-writer-wins with no
// cross-field atomicity: a snapshot may pair a fresh depth slice with a
// stale battery reading. That staleness is the documented contract, not a
// bug — there is no "unknown" marker, only age.
package sensor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/durin-robotics/durin/internal/runnable"
	"github.com/durin-robotics/durin/internal/wire"
)

const (
	// DefaultRingCapacity is the number of inter-update deltas kept for
	// frequency estimation.
	DefaultRingCapacity = 50

	// DefaultEpsilon guards the frequency division against a zero mean.
	DefaultEpsilon = 1e-7

	volumeCells = 8 * 8 * 8
	sliceCells  = 8 * 8
)

// Observation is a point-in-time snapshot of the aggregate state. It is a
// value copy: mutating it has no effect on the aggregator.
type Observation struct {
	// DepthVolume holds the TOF readings in millimetres, indexed
	// [layer][row][col]. Sensor tof_a fills layers 0-1, tof_b 2-3, and so
	// on.
	DepthVolume [8][8][8]float32

	// IMU is the 3x3 inertial matrix from the last misc packet.
	IMU *mat.Dense

	Charge  float32
	Voltage float32

	// UpdateFrequency estimates how often telemetry arrives, Hz.
	UpdateFrequency float64
}

// Config tunes the aggregator. Zero fields take defaults.
type Config struct {
	RingCapacity int
	Epsilon      float64

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Sensor consumes the telemetry queue and owns the shared aggregate state.
type Sensor struct {
	queue  *runnable.Queue[wire.Packet]
	worker *runnable.Consumer[wire.Packet]
	clock  func() time.Time

	mu         sync.Mutex
	depth      [volumeCells]float32
	imu        [9]float64
	charge     float32
	voltage    float32
	frequency  float64
	epsilon    float64
	ring       *RingBuffer
	lastUpdate time.Time
}

// New builds a sensor aggregator over a decoded-telemetry queue.
func New(queue *runnable.Queue[wire.Packet], cfg Config) *Sensor {
	if cfg.RingCapacity == 0 {
		cfg.RingCapacity = DefaultRingCapacity
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Sensor{
		queue:      queue,
		clock:      cfg.Clock,
		epsilon:    cfg.Epsilon,
		ring:       NewRingBuffer(cfg.RingCapacity),
		lastUpdate: cfg.Clock(),
	}
	s.worker = runnable.NewConsumer("sensor-aggregator", queue, s.consume)
	return s
}

// Start launches the aggregator worker.
func (s *Sensor) Start() {
	s.worker.Start()
}

// Stop halts the aggregator worker. Safe to call more than once.
func (s *Sensor) Stop() {
	s.worker.Stop()
}

// consume folds one packet into the aggregate. Each packet touches only its
// own fields; everything else keeps its previous value.
func (s *Sensor) consume(p wire.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case p.Sensor >= wire.SensorTofA && p.Sensor <= wire.SensorTofD && p.Tof != nil:
		// Each TOF datagram carries two 8x8 slices, so sensor k lands at
		// volume layers [2k, 2k+2).
		layer := int(p.Sensor-wire.SensorTofA) * 2
		copy(s.depth[layer*sliceCells:(layer+2)*sliceCells], p.Tof.Depth[:])

	case p.Sensor == wire.SensorMisc && p.Misc != nil:
		s.charge = p.Misc.Charge
		s.voltage = p.Misc.Voltage
		for i, v := range p.Misc.IMU {
			s.imu[i] = float64(v)
		}
	}

	now := s.clock()
	s.ring.Push(now.Sub(s.lastUpdate).Seconds())
	s.lastUpdate = now
	s.frequency = 1 / (s.ring.Mean() + s.epsilon)
}

// Read materialises a snapshot of the aggregate. Safe to call concurrently
// with ongoing updates; the snapshot may mix old and new field values.
func (s *Sensor) Read() Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var obs Observation
	for layer := 0; layer < 8; layer++ {
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				obs.DepthVolume[layer][row][col] = s.depth[layer*sliceCells+row*8+col]
			}
		}
	}
	imu := make([]float64, len(s.imu))
	copy(imu, s.imu[:])
	obs.IMU = mat.NewDense(3, 3, imu)
	obs.Charge = s.charge
	obs.Voltage = s.voltage
	obs.UpdateFrequency = s.frequency
	return obs
}
