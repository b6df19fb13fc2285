package sampler

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExactIsDeterministic(t *testing.T) {
	s := New(nil)
	for _, p := range []uint32{0, 1, 100, math.MaxUint32} {
		for range 100 {
			assert.Equal(t, p, s.Sample(Exact(p)))
		}
	}
	assert.Equal(t, uint32(7), s.Sample(Range(7, 7)))
}

func TestRangeStaysInBoundsAndCentres(t *testing.T) {
	tests := []struct {
		name   string
		p, max uint32
	}{
		{"ascending", 100, 200},
		{"descending", 200, 100},
		{"from zero", 0, 10},
		{"near uint32 max", math.MaxUint32 - 1000, math.MaxUint32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(rand.NewPCG(1, 2))
			lo, hi := min(tt.p, tt.max), max(tt.p, tt.max)

			const n = 10000
			var sum float64
			for range n {
				v := s.Sample(Range(tt.p, tt.max))
				assert.GreaterOrEqual(t, v, lo)
				assert.LessOrEqual(t, v, hi)
				sum += float64(v)
			}

			mean := (float64(lo) + float64(hi)) / 2
			tolerance := math.Max(1, 0.02*float64(hi-lo))
			assert.InDelta(t, mean, sum/n, tolerance)
		})
	}
}

func TestOptional(t *testing.T) {
	assert.Equal(t, Exact(5), Optional(5, nil))

	m := uint32(9)
	v := Optional(5, &m)
	got, ranged := v.Max()
	assert.True(t, ranged)
	assert.Equal(t, uint32(9), got)
	assert.Equal(t, uint32(5), v.Nominal())
	assert.Equal(t, "5..9", v.String())
	assert.Equal(t, "5", Exact(5).String())
}

func TestDuration(t *testing.T) {
	s := New(nil)
	assert.Equal(t, 120*time.Millisecond, s.Duration(Exact(120)))
}
