package dynrnn

import (
	"fmt"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
)

// Classifier is a read-only copy of a Model's weights laid out for BLAS.
// It is safe for concurrent use and unaffected by further training of the Model.
type Classifier struct {
	xSize      int
	hSize      int
	numClasses int
	wh         []float64 // row major, hSize x (xSize+hSize+1)
	wy         []float64 // row major, numClasses x (hSize+1)
}

func (m *Model) Snapshot() *Classifier {
	c := Classifier{
		xSize:      m.xSize,
		hSize:      m.HSize(),
		numClasses: m.NumClasses(),
		wh:         make([]float64, 0, m.HSize()*(m.xSize+m.HSize()+1)),
		wy:         make([]float64, 0, m.NumClasses()*(m.HSize()+1)),
	}
	for _, row := range m.Wh {
		c.wh = append(c.wh, unitVals(row)...)
	}
	for _, row := range m.Wy {
		c.wy = append(c.wy, unitVals(row)...)
	}
	return &c
}

// Predict returns the class probabilities of a padded sequence whose first length timesteps are valid.
// Padding after the last valid timestep cannot change its hidden state, so it is never computed.
func (c *Classifier) Predict(seq [][]float64, length int) ([]float64, error) {
	if length < 1 || length > len(seq) {
		return nil, fmt.Errorf("%w: length %d, want [1, %d]", ErrLength, length, len(seq))
	}
	impl := blas64.Implementation()
	cols := c.xSize + c.hSize + 1
	in := make([]float64, cols)
	in[cols-1] = 1
	h := make([]float64, c.hSize)
	for t, x := range seq[:length] {
		if len(x) != c.xSize {
			return nil, fmt.Errorf("dynrnn: timestep %d has %d features, want %d", t, len(x), c.xSize)
		}
		copy(in, x)
		copy(in[c.xSize:], h)
		impl.Dgemv(blas.NoTrans, c.hSize, cols, 1, c.wh, cols, in, 1, 0, h, 1)
		for i := range h {
			h[i] = Sigmoid(h[i])
		}
	}

	features := make([]float64, c.hSize+1)
	copy(features, h)
	features[c.hSize] = 1
	logits := make([]float64, c.numClasses)
	impl.Dgemv(blas.NoTrans, c.numClasses, c.hSize+1, 1, c.wy, c.hSize+1, features, 1, 0, logits, 1)
	return softmax(logits), nil
}

// Classify returns the most probable class of every sequence.
func (c *Classifier) Classify(x [][][]float64, lengths []int) ([]int, error) {
	if err := checkBatch(len(x), len(lengths)); err != nil {
		return nil, err
	}
	classes := make([]int, len(x))
	for b, seq := range x {
		p, err := c.Predict(seq, lengths[b])
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", b, err)
		}
		classes[b] = floats.MaxIdx(p)
	}
	return classes, nil
}
