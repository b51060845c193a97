package dynrnn

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
)

// Step is the recurrent unit at a single timestep.
// A nil Prev stands for an all zero initial state.
type Step struct {
	Model *Model
	Prev  *Step
	X     []float64
	H     []Unit
}

func NewStep(m *Model, prev *Step, x []float64) *Step {
	s := Step{
		Model: m,
		Prev:  prev,
		X:     x,
		H:     make([]Unit, m.HSize()),
	}
	for i := 0; i < len(s.H); i++ {
		w := m.Wh[i]
		var v float64 = 0
		for j := 0; j < m.xSize; j++ {
			v += w[j].Val * x[j]
		}
		if prev != nil {
			for j := 0; j < len(prev.H); j++ {
				v += w[m.xSize+j].Val * prev.H[j].Val
			}
		}
		v += w[len(w)-1].Val
		s.H[i].Val = Sigmoid(v)
	}
	return &s
}

// Backward assumes the gradients on H are already set.
func (s *Step) Backward() {
	xSize := s.Model.xSize
	for i := 0; i < len(s.H); i++ {
		d := s.H[i].Grad * s.H[i].Val * (1 - s.H[i].Val)
		if d == 0 {
			continue
		}
		w := s.Model.Wh[i]
		for j := 0; j < xSize; j++ {
			w[j].Grad += d * s.X[j]
		}
		if s.Prev != nil {
			for j := 0; j < len(s.Prev.H); j++ {
				w[xSize+j].Grad += d * s.Prev.H[j].Val
				s.Prev.H[j].Grad += d * w[xSize+j].Val
			}
		}
		w[len(w)-1].Grad += d
	}
}

// Output is the classifier applied to the last valid step of a sequence.
type Output struct {
	Model    *Model
	Last     *Step
	Features []float64
	Y        []Unit // class probabilities
}

func NewOutput(m *Model, last *Step, features []float64) *Output {
	o := Output{
		Model:    m,
		Last:     last,
		Features: features,
		Y:        make([]Unit, m.NumClasses()),
	}
	logits := make([]float64, len(o.Y))
	for i := 0; i < len(logits); i++ {
		w := m.Wy[i]
		maxJ := len(w) - 1
		var v float64 = 0
		for j := 0; j < maxJ; j++ {
			v += w[j].Val * features[j]
		}
		logits[i] = v + w[maxJ].Val
	}
	for i, p := range softmax(logits) {
		if math.IsNaN(p) {
			panic(fmt.Sprintf("dynrnn: NaN probability, logits: %v", logits))
		}
		o.Y[i].Val = p
	}
	return &o
}

// Backward propagates the softmax cross entropy gradient for the one-hot label y
// into the classifier weights and the last valid step.
func (o *Output) Backward(y []float64) {
	for i := 0; i < len(o.Y); i++ {
		g := o.Y[i].Val - y[i]
		o.Y[i].Grad = g
		w := o.Model.Wy[i]
		maxJ := len(w) - 1
		for j := 0; j < maxJ; j++ {
			w[j].Grad += g * o.Features[j]
			o.Last.H[j].Grad += g * w[j].Val
		}
		w[maxJ].Grad += g
	}
}

// Sequence holds the unrolled network for one padded input sequence.
type Sequence struct {
	Steps []*Step
	Out   *Output
}

// Backward runs backpropagation through time from the classifier output.
func (s *Sequence) Backward(y []float64) {
	s.Out.Backward(y)
	for t := len(s.Steps) - 1; t >= 0; t-- {
		s.Steps[t].Backward()
	}
}

// Outputs returns the hidden state at every timestep, padding included.
func (s *Sequence) Outputs() [][]float64 {
	outs := make([][]float64, len(s.Steps))
	for t, step := range s.Steps {
		outs[t] = unitVals(step.H)
	}
	return outs
}

// Forward unrolls the model over every timestep of the padded inputs x, indexed
// [sequence][timestep][feature], and classifies each sequence by its hidden state
// at timestep lengths[b]-1.
func Forward(m *Model, x [][][]float64, lengths []int) ([]*Sequence, error) {
	if err := checkBatch(len(x), len(lengths)); err != nil {
		return nil, err
	}
	seqs := make([]*Sequence, len(x))
	outputs := make([][][]float64, len(x))
	for b, in := range x {
		steps := make([]*Step, len(in))
		var prev *Step
		for t, xt := range in {
			if len(xt) != m.xSize {
				return nil, fmt.Errorf("dynrnn: sequence %d timestep %d has %d features, want %d", b, t, len(xt), m.xSize)
			}
			prev = NewStep(m, prev, xt)
			steps[t] = prev
		}
		seqs[b] = &Sequence{Steps: steps}
		outputs[b] = seqs[b].Outputs()
	}

	last, err := LastRelevant(outputs, lengths)
	if err != nil {
		return nil, err
	}
	for b, s := range seqs {
		s.Out = NewOutput(m, s.Steps[lengths[b]-1], last[b])
	}
	return seqs, nil
}

// ForwardBackward runs Forward and leaves the gradient of Loss(y, ...) in the model's weights.
func ForwardBackward(m *Model, x [][][]float64, y [][]float64, lengths []int) ([]*Sequence, error) {
	if len(y) != len(x) {
		return nil, fmt.Errorf("dynrnn: %d sequences but %d labels", len(x), len(y))
	}
	for b, label := range y {
		if len(label) != m.NumClasses() {
			return nil, fmt.Errorf("dynrnn: label %d has %d classes, want %d", b, len(label), m.NumClasses())
		}
	}
	seqs, err := Forward(m, x, lengths)
	if err != nil {
		return nil, err
	}
	m.ClearGradients()
	for b, s := range seqs {
		s.Backward(y[b])
	}
	return seqs, nil
}

// Loss returns the summed cross entropy, in nats, of the labels y.
func Loss(y [][]float64, seqs []*Sequence) float64 {
	var l float64 = 0
	for b, s := range seqs {
		l += crossEntropy(y[b], unitVals(s.Out.Y))
	}
	return l
}

// Accuracy returns the fraction of sequences whose most probable class matches y.
func Accuracy(y [][]float64, seqs []*Sequence) float64 {
	if len(seqs) == 0 {
		return 0
	}
	correct := 0
	for b, s := range seqs {
		if floats.MaxIdx(unitVals(s.Out.Y)) == floats.MaxIdx(y[b]) {
			correct++
		}
	}
	return float64(correct) / float64(len(seqs))
}

func Predictions(seqs []*Sequence) [][]float64 {
	pdts := make([][]float64, len(seqs))
	for b, s := range seqs {
		pdts[b] = unitVals(s.Out.Y)
	}
	return pdts
}

func Sprint2(t [][]float64) string {
	s := "["
	for _, t1 := range t {
		s += "["
		for _, t2 := range t1 {
			s += fmt.Sprintf(" %.2f", t2)
		}
		s += "]"
	}
	s += "]"
	return s
}
