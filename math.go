package dynrnn

import (
	"math"

	"github.com/gonum/floats"
)

const (
	machineEpsilon     = 2.2e-16
	machineEpsilonSqrt = 1e-8 // math.Sqrt(machineEpsilon)
)

func Sigmoid(x float64) float64 {
	return 1.0 / (1 + math.Exp(-x))
}

func MakeTensor2(n, m int) [][]float64 {
	t := make([][]float64, n)
	for i := 0; i < len(t); i++ {
		t[i] = make([]float64, m)
	}
	return t
}

func MakeTensor3(n, m, p int) [][][]float64 {
	t := make([][][]float64, n)
	for i := 0; i < len(t); i++ {
		t[i] = MakeTensor2(m, p)
	}
	return t
}

// softmax normalizes logits into probabilities.
// Subtracting the log-sum-exp keeps math.Exp from overflowing.
func softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	p := make([]float64, len(logits))
	for i, l := range logits {
		p[i] = math.Exp(l - lse)
	}
	return p
}

// crossEntropy is the negative log likelihood, in nats, of the one-hot label under probs.
func crossEntropy(label, probs []float64) float64 {
	var llh float64 = 0
	for i, y := range label {
		if y == 0 {
			continue
		}
		llh += y * math.Log(math.Max(probs[i], machineEpsilon))
	}
	return -llh
}
