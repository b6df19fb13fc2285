// Package sampler turns nominal action parameters into concrete values.
// A parameter is either exact or a range; ranges are drawn from a normal
// distribution centred on the middle of the range and clamped into it.
package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Value is a parameter with an optional upper bound.
type Value struct {
	p      uint32
	max    uint32
	ranged bool
}

// Exact returns a value that always samples to p.
func Exact(p uint32) Value {
	return Value{p: p}
}

// Range returns a value sampled between p and pMax. The bounds may be given
// in either order.
func Range(p, pMax uint32) Value {
	return Value{p: p, max: pMax, ranged: true}
}

// Optional returns Exact(p) when pMax is nil and Range(p, *pMax) otherwise.
func Optional(p uint32, pMax *uint32) Value {
	if pMax == nil {
		return Exact(p)
	}
	return Range(p, *pMax)
}

// Nominal returns p.
func (v Value) Nominal() uint32 { return v.p }

// Max returns the upper bound and whether the value is a range.
func (v Value) Max() (uint32, bool) { return v.max, v.ranged }

func (v Value) String() string {
	if !v.ranged {
		return fmt.Sprint(v.p)
	}
	return fmt.Sprintf("%d..%d", v.p, v.max)
}

// Sampler draws concrete values. It is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// New returns a sampler reading from src, or from a randomly seeded source
// when src is nil.
func New(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample returns p for exact values. For ranges it draws from a normal
// distribution with mean (p+pMax)/2 and standard deviation |pMax-p|/2,
// rounded and clamped into [min(p,pMax), max(p,pMax)].
func (s *Sampler) Sample(v Value) uint32 {
	if !v.ranged || v.p == v.max {
		return v.p
	}

	lo, hi := float64(min(v.p, v.max)), float64(max(v.p, v.max))
	mean := (lo + hi) / 2
	sd := (hi - lo) / 2

	x := math.Round(mean + sd*s.rng.NormFloat64())
	return uint32(math.Min(math.Max(x, lo), hi))
}

// Duration samples v as milliseconds.
func (s *Sampler) Duration(v Value) time.Duration {
	return time.Duration(s.Sample(v)) * time.Millisecond
}
