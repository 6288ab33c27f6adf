// Package entropy provides the randomness source for stochastic events
// (defense-action rolls). Production uses a crypto-seeded generator;
// tests use fixed seeds or scripted rolls for reproducible outcomes.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// Source yields floats in [0, 1).
type Source interface {
	Float() float64
}

// Rand is a mutex-guarded math/rand source.
type Rand struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) *Rand {
	return &Rand{rng: mathrand.New(mathrand.NewSource(seed))}
}

// New returns a source seeded from crypto/rand.
func New() *Rand {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Zero seed still yields a valid generator.
		return NewSeeded(0)
	}
	return NewSeeded(int64(binary.LittleEndian.Uint64(buf[:])))
}

// Float returns a random float64 in [0, 1).
func (r *Rand) Float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Fixed is a scripted source for tests: it returns its values in order,
// repeating the last one when exhausted.
type Fixed struct {
	mu     sync.Mutex
	values []float64
	idx    int
}

// NewFixed creates a scripted source.
func NewFixed(values ...float64) *Fixed {
	if len(values) == 0 {
		values = []float64{0}
	}
	return &Fixed{values: values}
}

// Float returns the next scripted value.
func (f *Fixed) Float() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.values[f.idx]
	if f.idx < len(f.values)-1 {
		f.idx++
	}
	return v
}
