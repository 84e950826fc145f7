// Package engine implements the real-time facial action unit analysis
// pipeline: geometric extraction, temporal smoothing, per-channel state
// machines, baseline calibration and frame-level metrics.
package engine

import "math"

// ring is a fixed-capacity circular buffer of float64 samples. Pushing into
// a full ring evicts the oldest sample. The zero value is not usable; use
// newRing.
type ring struct {
	buf   []float64
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) Len() int {
	return r.n
}

func (r *ring) Cap() int {
	return len(r.buf)
}

// Values returns the samples oldest-first.
func (r *ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *ring) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r.n; i++ {
		sum += r.buf[(r.start+i)%len(r.buf)]
	}
	return sum / float64(r.n)
}

// StdDev returns the population standard deviation of the buffered samples.
func (r *ring) StdDev() float64 {
	if r.n == 0 {
		return 0
	}
	mean := r.Mean()
	sum := 0.0
	for i := 0; i < r.n; i++ {
		d := r.buf[(r.start+i)%len(r.buf)] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(r.n))
}

func (r *ring) Reset() {
	r.start = 0
	r.n = 0
}
