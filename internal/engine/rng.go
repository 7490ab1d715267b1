// Package engine holds the quiz assembly and scoring core: a seeded LCG, the shuffle built on
// it, the assembler, the grader and attempt numbering. Everything here is request-local and free
// of I/O except for the history repository the attempt recorder delegates to.
package engine

import (
	"fmt"
	"time"

	"quiz-engine-service/internal/domain"
)

const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// Source yields bounded integers. Implementations are not safe for concurrent use.
type Source interface {
	Next(min, max int) (int, error)
}

// LCG is a 32-bit linear congruential generator. Not cryptographically secure.
type LCG struct {
	state uint32
}

// NewLCG returns a generator starting from seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// SeedFromTime masks the Unix time in milliseconds to 32 bits.
func SeedFromTime(t time.Time) uint32 {
	return uint32(t.UnixMilli() & 0xFFFFFFFF)
}

// NewTimeSeeded returns a generator seeded from the current time.
func NewTimeSeeded() *LCG {
	return NewLCG(SeedFromTime(time.Now()))
}

// State exposes the internal state, mostly for tests and diagnostics.
func (g *LCG) State() uint32 {
	return g.state
}

// Next advances the state and returns a value in [min, max].
func (g *LCG) Next(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("%w: min=%d max=%d", domain.ErrInvalidRange, min, max)
	}
	// uint32 arithmetic wraps, which is the mod 2^32 step.
	g.state = lcgMultiplier*g.state + lcgIncrement
	span := uint64(max-min) + 1
	return min + int(uint64(g.state)%span), nil
}
