package dynrnn

import (
	"errors"
	"fmt"
)

// ErrLength is returned when a sequence's true length does not address a timestep of its padded outputs.
var ErrLength = errors.New("dynrnn: sequence length out of range")

// lastIndex returns the timestep holding the final valid output of sequence b.
func lastIndex(b, length, maxLen int) (int, error) {
	if length < 1 || length > maxLen {
		return 0, fmt.Errorf("%w: sequence %d has length %d, want [1, %d]", ErrLength, b, length, maxLen)
	}
	return length - 1, nil
}

func checkBatch(numSeqs, numLengths int) error {
	if numSeqs != numLengths {
		return fmt.Errorf("%w: %d sequences but %d lengths", ErrLength, numSeqs, numLengths)
	}
	return nil
}

// LastRelevant selects, for every sequence b, the output at timestep lengths[b]-1.
// outputs is indexed [sequence][timestep][feature] and includes padding timesteps.
// The returned rows are copies.
func LastRelevant(outputs [][][]float64, lengths []int) ([][]float64, error) {
	if err := checkBatch(len(outputs), len(lengths)); err != nil {
		return nil, err
	}
	last := make([][]float64, len(outputs))
	for b, seq := range outputs {
		t, err := lastIndex(b, lengths[b], len(seq))
		if err != nil {
			return nil, err
		}
		last[b] = append([]float64(nil), seq[t]...)
	}
	return last, nil
}

// GatherFlat is LastRelevant over a row-major buffer of len(lengths)*maxLen rows of width values.
// Row b*maxLen + lengths[b]-1 is returned for every sequence b.
func GatherFlat(flat []float64, maxLen, width int, lengths []int) ([][]float64, error) {
	if maxLen < 1 || width < 1 {
		return nil, fmt.Errorf("dynrnn: invalid shape maxLen=%d width=%d", maxLen, width)
	}
	if want := len(lengths) * maxLen * width; len(flat) != want {
		return nil, fmt.Errorf("dynrnn: flat buffer has %d values, want %d", len(flat), want)
	}
	last := make([][]float64, len(lengths))
	for b, l := range lengths {
		t, err := lastIndex(b, l, maxLen)
		if err != nil {
			return nil, err
		}
		row := (b*maxLen + t) * width
		last[b] = append([]float64(nil), flat[row:row+width]...)
	}
	return last, nil
}
