package dynrnn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGDMomentumReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	lengths := []int{3, 2, 4, 1}
	x, y := randomBatch(rng, lengths, 4, 1, 2)
	m := randomModel(rng, 1, 4, 2)
	before := loss(m, x, y, lengths)

	sgd := NewSGDMomentum(m)
	for i := 0; i < 200; i++ {
		_, err := sgd.Train(x, y, lengths, 0.05, 0.5)
		require.NoError(t, err)
	}
	assert.Less(t, loss(m, x, y, lengths), before)
}

func TestRMSPropReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	lengths := []int{3, 2, 4, 1}
	x, y := randomBatch(rng, lengths, 4, 1, 2)
	m := randomModel(rng, 1, 4, 2)
	before := loss(m, x, y, lengths)

	rmsp := NewRMSProp(m)
	for i := 0; i < 200; i++ {
		_, err := rmsp.Train(x, y, lengths, 0.95, 0.5, 1e-3, 1e-3)
		require.NoError(t, err)
	}
	assert.Less(t, loss(m, x, y, lengths), before)
}

func TestOptimizerRejectsBadBatch(t *testing.T) {
	m := NewEmptyModel(1, 2, 2)
	x := [][][]float64{{{1}, {0}}}
	y := [][]float64{{1, 0}}

	_, err := NewRMSProp(m).Train(x, y, []int{3}, 0.95, 0.5, 1e-3, 1e-3)
	assert.ErrorIs(t, err, ErrLength)
	_, err = NewSGDMomentum(m).Train(x, y, []int{0}, 0.1, 0.9)
	assert.ErrorIs(t, err, ErrLength)
	m.Weights(func(u *Unit) { assert.Zero(t, u.Val, "weights must not move on error") })
}
