package fnn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSigmoidStableAtExtremes(t *testing.T) {
	z := mat.NewDense(2, 4, []float64{
		1, 0, 0, 1000,
		-1000, 0, 29, 0.32,
	})
	out := Sigmoid(z)

	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := out.At(i, j)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "sigmoid(%g) not finite", z.At(i, j))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
	assert.InDelta(t, 1.0, out.At(0, 3), 1e-12)
	assert.InDelta(t, 0.0, out.At(1, 0), 1e-12)
	assert.InDelta(t, 0.5, out.At(0, 1), 1e-12)
}

func TestDerivativesFromForwardOutput(t *testing.T) {
	z := mat.NewDense(1, 5, []float64{-2, -0.5, 0, 0.5, 2})

	y := Tanh(z)
	dy := TanhPrime(y)
	for j := 0; j < 5; j++ {
		v := math.Tanh(z.At(0, j))
		assert.InDelta(t, v, y.At(0, j), 1e-12)
		assert.InDelta(t, 1-v*v, dy.At(0, j), 1e-12)
	}

	y = Sigmoid(z)
	dy = SigmoidPrime(y)
	for j := 0; j < 5; j++ {
		v := 1.0 / (1.0 + math.Exp(-z.At(0, j)))
		assert.InDelta(t, v, y.At(0, j), 1e-12)
		assert.InDelta(t, v*(1-v), dy.At(0, j), 1e-12)
	}
}

func TestActFuncValidation(t *testing.T) {
	assert.True(t, ActTanh.valid())
	assert.True(t, ActSigmoid.valid())
	assert.False(t, ActFunc("relu").valid())

	_, err := activate(ActFunc("relu"), mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}
