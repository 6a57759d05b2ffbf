package fnn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ActFunc names one of the two supported hidden-layer activations.
type ActFunc string

const (
	ActTanh    ActFunc = "tanh"
	ActSigmoid ActFunc = "sigmoid"
)

func (a ActFunc) valid() bool {
	return a == ActTanh || a == ActSigmoid
}

// sigmoidScalar is the numerically stable two-branch sigmoid. The naive
// 1/(1+exp(-x)) overflows for large negative x.
func sigmoidScalar(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	ex := math.Exp(x)
	return ex / (ex + 1.0)
}

// Tanh applies tanh elementwise.
func Tanh(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
	return out
}

// Sigmoid applies the stable sigmoid elementwise.
func Sigmoid(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return sigmoidScalar(v) }, z)
	return out
}

// TanhPrime computes the tanh derivative 1 - y^2 from the forward output y.
func TanhPrime(y *mat.Dense) *mat.Dense {
	r, c := y.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return 1.0 - v*v }, y)
	return out
}

// SigmoidPrime computes the sigmoid derivative y(1-y) from the forward
// output y.
func SigmoidPrime(y *mat.Dense) *mat.Dense {
	r, c := y.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return v * (1.0 - v) }, y)
	return out
}

func activate(a ActFunc, z *mat.Dense) (*mat.Dense, error) {
	switch a {
	case ActTanh:
		return Tanh(z), nil
	case ActSigmoid:
		return Sigmoid(z), nil
	}
	return nil, fmt.Errorf("unknown activation %q", a)
}

// activatePrime evaluates the derivative from the cached forward output.
func activatePrime(a ActFunc, y *mat.Dense) (*mat.Dense, error) {
	switch a {
	case ActTanh:
		return TanhPrime(y), nil
	case ActSigmoid:
		return SigmoidPrime(y), nil
	}
	return nil, fmt.Errorf("unknown activation %q", a)
}
