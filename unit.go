package dynrnn

import (
	"fmt"
)

// A Unit is a weight or activation in the network. Val is filled in by the forward pass
// and Grad accumulates the derivative of the loss during the backward pass.
type Unit struct {
	Val  float64 // value at node
	Grad float64 // gradient at node
}

func (u Unit) String() string {
	return fmt.Sprintf("{%.3g %.3g}", u.Val, u.Grad)
}

func makeTensorUnit2(n, m int) [][]Unit {
	t := make([][]Unit, n)
	for i := 0; i < len(t); i++ {
		t[i] = make([]Unit, m)
	}
	return t
}

func unitVals(units []Unit) []float64 {
	v := make([]float64, 0, len(units))
	for _, u := range units {
		v = append(v, u.Val)
	}
	return v
}

func doUnit1(t []Unit, f func(*Unit)) {
	for i := 0; i < len(t); i++ {
		f(&t[i])
	}
}

func doUnit2(t [][]Unit, f func(*Unit)) {
	for _, a := range t {
		doUnit1(a, f)
	}
}
