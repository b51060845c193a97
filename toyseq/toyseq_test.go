package toyseq

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws so the generation branch can be controlled.
type scriptedRand struct {
	t      *testing.T
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	require.NotEmpty(r.t, r.ints, "unexpected Intn(%d)", n)
	v := r.ints[0]
	r.ints = r.ints[1:]
	require.Less(r.t, v, n, "scripted value out of range for Intn(%d)", n)
	return v
}

func (r *scriptedRand) Float64() float64 {
	require.NotEmpty(r.t, r.floats, "unexpected Float64()")
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func TestGenerateScripted(t *testing.T) {
	rng := &scriptedRand{
		t: t,
		ints: []int{
			1, 4, // length 3, linear start 4
			3, 10, 0, 3, 7, 1, // length 5, random values
			0, 0, 9, // length 2, random values
		},
		floats: []float64{0.2, 0.7, 0.5},
	}
	d, err := Generate(Params{N: 3, MaxLen: 5, MinLen: 2, MaxValue: 10}, rng)
	require.NoError(t, err)
	assert.Empty(t, rng.ints)
	assert.Empty(t, rng.floats)

	assert.Equal(t, [][][]float64{
		{{0.4}, {0.5}, {0.6}, {0}, {0}},
		{{1}, {0}, {0.3}, {0.7}, {0.1}},
		{{0}, {0.9}, {0}, {0}, {0}},
	}, d.Sequences)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}, {0, 1}}, d.Labels)
	assert.Equal(t, []int{3, 5, 2}, d.Lengths)
	assert.Equal(t, Linear, d.Class(0))
	assert.Equal(t, Random, d.Class(1))
	assert.Equal(t, Random, d.Class(2), "0.5 falls on the random branch")
}

func TestGenerateDeterministic(t *testing.T) {
	p := Params{N: 50, MaxLen: 8, MinLen: 2, MaxValue: 100}
	a, err := Generate(p, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := Generate(p, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateInvariants(t *testing.T) {
	p := Params{N: 500, MaxLen: 20, MinLen: 3, MaxValue: 1000}
	d, err := Generate(p, rand.New(rand.NewSource(8)))
	require.NoError(t, err)

	require.Equal(t, p.N, d.Len())
	require.Len(t, d.Labels, p.N)
	require.Len(t, d.Lengths, p.N)
	assert.Equal(t, p.MaxLen, d.MaxLen)

	counts := map[Class]int{}
	for i, seq := range d.Sequences {
		l := d.Lengths[i]
		assert.GreaterOrEqual(t, l, p.MinLen)
		assert.LessOrEqual(t, l, p.MaxLen)
		require.Len(t, seq, p.MaxLen)

		for ts, v := range seq {
			require.Len(t, v, 1)
			if ts >= l {
				assert.Equal(t, []float64{0}, v, "sequence %d timestep %d must be padding", i, ts)
			} else {
				assert.GreaterOrEqual(t, v[0], 0.0)
				assert.LessOrEqual(t, v[0], 1.0)
			}
		}

		label := d.Labels[i]
		require.Len(t, label, NumClasses)
		assert.Equal(t, 1.0, label[0]+label[1])
		assert.Contains(t, [][]float64{{1, 0}, {0, 1}}, label)

		class := d.Class(i)
		counts[class]++
		if class == Linear {
			for ts := 1; ts < l; ts++ {
				assert.InDelta(t, 1/float64(p.MaxValue), seq[ts][0]-seq[ts-1][0], 1e-12)
			}
		}
	}
	assert.Positive(t, counts[Linear])
	assert.Positive(t, counts[Random])
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"valid", Params{N: 1, MaxLen: 20, MinLen: 3, MaxValue: 1000}, true},
		{"fixed length", Params{N: 1, MaxLen: 4, MinLen: 4, MaxValue: 4}, true},
		{"no samples", Params{N: 0, MaxLen: 20, MinLen: 3, MaxValue: 1000}, false},
		{"zero min length", Params{N: 1, MaxLen: 20, MinLen: 0, MaxValue: 1000}, false},
		{"min above max", Params{N: 1, MaxLen: 5, MinLen: 6, MaxValue: 1000}, false},
		{"max value below max length", Params{N: 1, MaxLen: 20, MinLen: 3, MaxValue: 19}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidParams)
			_, err = Generate(tt.p, rand.New(rand.NewSource(1)))
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestClass(t *testing.T) {
	assert.Equal(t, "linear", Linear.String())
	assert.Equal(t, "random", Random.String())
	assert.Equal(t, "Class(7)", Class(7).String())
	assert.Equal(t, []float64{1, 0}, Linear.OneHot())
	assert.Equal(t, []float64{0, 1}, Random.OneHot())
}
