package dynrnn

import (
	"math"
)

type SGDMomentum struct {
	M     *Model
	PrevD []float64
}

func NewSGDMomentum(m *Model) *SGDMomentum {
	s := SGDMomentum{
		M:     m,
		PrevD: make([]float64, m.NumWeights()),
	}
	return &s
}

func (s *SGDMomentum) Train(x [][][]float64, y [][]float64, lengths []int, alpha, mt float64) ([]*Sequence, error) {
	seqs, err := ForwardBackward(s.M, x, y, lengths)
	if err != nil {
		return nil, err
	}
	i := 0
	s.M.Weights(func(w *Unit) {
		d := -alpha*w.Grad + mt*s.PrevD[i]
		w.Val += d
		s.PrevD[i] = d
		i++
	})
	return seqs, nil
}

// RMSProp is the variant in Graves, "Generating Sequences With Recurrent Neural Networks",
// which normalizes gradients by a running estimate of their variance.
type RMSProp struct {
	M *Model
	N []float64
	G []float64
	D []float64
}

func NewRMSProp(m *Model) *RMSProp {
	r := RMSProp{
		M: m,
		N: make([]float64, m.NumWeights()),
		G: make([]float64, m.NumWeights()),
		D: make([]float64, m.NumWeights()),
	}
	return &r
}

// Train performs one update with decay a, momentum b, learning rate c and regularizer d.
func (r *RMSProp) Train(x [][][]float64, y [][]float64, lengths []int, a, b, c, d float64) ([]*Sequence, error) {
	seqs, err := ForwardBackward(r.M, x, y, lengths)
	if err != nil {
		return nil, err
	}
	r.update(a, b, c, d)
	return seqs, nil
}

func (r *RMSProp) update(a, b, c, d float64) {
	i := 0
	r.M.Weights(func(w *Unit) {
		r.N[i] = a*r.N[i] + (1-a)*w.Grad*w.Grad
		r.G[i] = a*r.G[i] + (1-a)*w.Grad
		r.D[i] = b*r.D[i] - c*w.Grad/math.Sqrt(r.N[i]-r.G[i]*r.G[i]+d)
		w.Val += r.D[i]
		i++
	})
}
