package engine

import (
	"math"
	"sync"
)

// Tap copies everything passing through an analysis node into a ring
// buffer for meters and scopes
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

// NewTap creates a tap holding the last size samples
func NewTap(size int) *Tap {
	return &Tap{buf: make([]float64, size), size: size}
}

func (t *Tap) write(samples []float64) {
	t.mu.Lock()
	for _, s := range samples {
		t.buf[t.pos] = s
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
}

// Samples returns the last n samples in chronological order
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// Level is the RMS of the most recent levelWindow samples, capped at 1
func (t *Tap) Level() float64 {
	s := t.Samples(levelWindow)
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(s)))
	return math.Min(rms, 1)
}
