package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomArray draws size values uniformly from [-bound, bound).
func RandomArray(size int, bound float64, src rand.Source) []float64 {
	dist := distuv.Uniform{
		Min: -bound,
		Max: bound,
		Src: src,
	}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// XavierBound is the classic uniform-init half width sqrt(6/(nIn+nOut)).
func XavierBound(nIn, nOut int) float64 {
	return math.Sqrt(6.0 / float64(nIn+nOut))
}

// ZerosLike allocates a zero matrix with a's shape.
func ZerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}
