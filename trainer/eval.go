package trainer

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"

	"github.com/fumin/dynrnn"
	"github.com/fumin/dynrnn/config"
	"github.com/fumin/dynrnn/toyseq"
)

// Datasets generates the train and test sets of cfg. The same seed always yields the same sets,
// so a test set can be rebuilt later from the config of the run that trained a model.
func Datasets(cfg config.Config) (*toyseq.Dataset, *toyseq.Dataset, *rand.Rand, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	train, err := toyseq.Generate(cfg.TrainParams(), rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate train set: %w", err)
	}
	test, err := toyseq.Generate(cfg.TestParams(), rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate test set: %w", err)
	}
	return train, test, rng, nil
}

// LoadModel reads a JSON array of weights, as served by /Weights, into a model with hidden units.
func LoadModel(r io.Reader, hidden int) (*dynrnn.Model, error) {
	var ws []float64
	if err := json.NewDecoder(r).Decode(&ws); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	m := dynrnn.NewEmptyModel(1, hidden, toyseq.NumClasses)
	if err := m.SetWeights(ws); err != nil {
		return nil, err
	}
	return m, nil
}

// Score returns the fraction of d that a snapshot of m classifies correctly.
func Score(m *dynrnn.Model, d *toyseq.Dataset) (float64, error) {
	classes, err := m.Snapshot().Classify(d.Sequences, d.Lengths)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, c := range classes {
		if toyseq.Class(c) == d.Class(i) {
			correct++
		}
	}
	return float64(correct) / float64(len(classes)), nil
}
