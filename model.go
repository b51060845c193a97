package dynrnn

import (
	"fmt"
)

// Model is a recurrent unit followed by a softmax classifier.
// The last column of every weight row is a bias.
type Model struct {
	Wh         [][]Unit // hidden x (input + hidden + 1)
	Wy         [][]Unit // classes x (hidden + 1)
	xSize      int
	numWeights int
}

func NewEmptyModel(xSize, hSize, numClasses int) *Model {
	m := Model{
		Wh:         makeTensorUnit2(hSize, xSize+hSize+1),
		Wy:         makeTensorUnit2(numClasses, hSize+1),
		xSize:      xSize,
		numWeights: hSize*(xSize+hSize+1) + numClasses*(hSize+1),
	}
	return &m
}

func (m *Model) XSize() int {
	return m.xSize
}

func (m *Model) HSize() int {
	return len(m.Wh)
}

func (m *Model) NumClasses() int {
	return len(m.Wy)
}

// Weights calls f on every weight of the model, always in the same order.
func (m *Model) Weights(f func(*Unit)) {
	doUnit2(m.Wh, f)
	doUnit2(m.Wy, f)
}

func (m *Model) ClearGradients() {
	m.Weights(func(u *Unit) { u.Grad = 0 })
}

func (m *Model) NumWeights() int {
	return m.numWeights
}

// SetWeights assigns ws to the model's weights in the order Weights visits them.
func (m *Model) SetWeights(ws []float64) error {
	if len(ws) != m.numWeights {
		return fmt.Errorf("dynrnn: got %d weights, want %d", len(ws), m.numWeights)
	}
	i := 0
	m.Weights(func(u *Unit) {
		u.Val = ws[i]
		i++
	})
	return nil
}
