// Package toyseq generates labeled variable length sequences for sequence classification.
// Half of the sequences count upwards in steps of 1/MaxValue ("linear"), the other
// half are uniform noise ("random"). Every sequence is right padded with zero
// vectors to MaxLen timesteps and its true length is kept alongside.
package toyseq

import (
	"errors"
	"fmt"

	"github.com/gonum/floats"
)

type Class int

const (
	Linear Class = iota
	Random
)

// NumClasses is the width of a one-hot label.
const NumClasses = 2

func (c Class) String() string {
	switch c {
	case Linear:
		return "linear"
	case Random:
		return "random"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

func (c Class) OneHot() []float64 {
	v := make([]float64, NumClasses)
	v[c] = 1
	return v
}

// Rand is the source of randomness for Generate. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

var ErrInvalidParams = errors.New("toyseq: invalid params")

type Params struct {
	N        int // number of sequences
	MaxLen   int
	MinLen   int
	MaxValue int
}

func (p Params) Validate() error {
	switch {
	case p.N < 1:
		return fmt.Errorf("%w: sample count %d must be positive", ErrInvalidParams, p.N)
	case p.MinLen < 1:
		return fmt.Errorf("%w: min length %d must be at least 1", ErrInvalidParams, p.MinLen)
	case p.MinLen > p.MaxLen:
		return fmt.Errorf("%w: min length %d exceeds max length %d", ErrInvalidParams, p.MinLen, p.MaxLen)
	case p.MaxValue < p.MaxLen:
		return fmt.Errorf("%w: max value %d is less than max length %d", ErrInvalidParams, p.MaxValue, p.MaxLen)
	}
	return nil
}

// Dataset holds three parallel slices of equal length.
// It must not be modified after Generate returns it.
type Dataset struct {
	Sequences [][][]float64 // [sample][timestep][feature], padded to MaxLen
	Labels    [][]float64   // one-hot over NumClasses
	Lengths   []int         // count of non padding timesteps
	MaxLen    int
}

// Generate builds a dataset of p.N sequences drawing from rng.
func Generate(p Params, rng Rand) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d := Dataset{
		Sequences: make([][][]float64, 0, p.N),
		Labels:    make([][]float64, 0, p.N),
		Lengths:   make([]int, 0, p.N),
		MaxLen:    p.MaxLen,
	}
	for i := 0; i < p.N; i++ {
		seq, class, length := genSeq(p, rng)
		d.Sequences = append(d.Sequences, seq)
		d.Labels = append(d.Labels, class.OneHot())
		d.Lengths = append(d.Lengths, length)
	}
	return &d, nil
}

func genSeq(p Params, rng Rand) ([][]float64, Class, int) {
	length := rng.Intn(p.MaxLen-p.MinLen+1) + p.MinLen
	maxValue := float64(p.MaxValue)

	seq := make([][]float64, p.MaxLen)
	var class Class
	if rng.Float64() < 0.5 {
		class = Linear
		start := rng.Intn(p.MaxValue - length + 1)
		for t := 0; t < length; t++ {
			seq[t] = []float64{float64(start+t) / maxValue}
		}
	} else {
		class = Random
		for t := 0; t < length; t++ {
			seq[t] = []float64{float64(rng.Intn(p.MaxValue+1)) / maxValue}
		}
	}
	for t := length; t < len(seq); t++ {
		seq[t] = []float64{0}
	}
	return seq, class, length
}

func (d *Dataset) Len() int {
	return len(d.Sequences)
}

// Class returns the class of sequence i.
func (d *Dataset) Class(i int) Class {
	return Class(floats.MaxIdx(d.Labels[i]))
}
