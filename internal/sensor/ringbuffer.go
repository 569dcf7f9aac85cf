package sensor

import "gonum.org/v1/gonum/stat"

// RingBuffer is a fixed-capacity circular buffer of inter-update time
// deltas, seconds. The backing slice starts zeroed and the mean is always
// taken over the full capacity, so the frequency estimate ramps up from
// zero history rather than spiking on the first few updates.
type RingBuffer struct {
	buf []float64
	idx int
}

// NewRingBuffer returns a ring holding capacity deltas.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]float64, capacity)}
}

// Push records a delta, overwriting the oldest entry once full.
func (r *RingBuffer) Push(v float64) {
	r.buf[r.idx%len(r.buf)] = v
	r.idx++
}

// Mean returns the mean over the full backing slice, including any
// yet-unwritten zeros.
func (r *RingBuffer) Mean() float64 {
	return stat.Mean(r.buf, nil)
}

// Cap reports the fixed capacity.
func (r *RingBuffer) Cap() int { return len(r.buf) }
