package fnn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxLayer is the output layer: an affine transform followed by a
// row-wise softmax producing one probability distribution per sample.
type SoftmaxLayer struct {
	nIn, nOut int
	useBias   bool

	w *Param // nIn x nOut
	b *Param // 1 x nOut, nil when bias is disabled

	// forward cache, consumed by the paired Backprop call
	x   *mat.Dense
	out *mat.Dense
}

// NewSoftmaxLayer initializes the weights uniformly in +-sqrt(6/(nIn+nOut))
// and the bias to zero.
func NewSoftmaxLayer(nIn, nOut int, useBias bool, src rand.Source) (*SoftmaxLayer, error) {
	if nIn <= 0 || nOut <= 0 {
		return nil, fmt.Errorf("softmax layer: invalid sizes nIn=%d nOut=%d", nIn, nOut)
	}
	s := &SoftmaxLayer{
		nIn:     nIn,
		nOut:    nOut,
		useBias: useBias,
		w:       newParam("w", mat.NewDense(nIn, nOut, utils.RandomArray(nIn*nOut, utils.XavierBound(nIn, nOut), src))),
	}
	if useBias {
		s.b = newParam("b", mat.NewDense(1, nOut, nil))
	}
	return s, nil
}

// RowSoftmax applies a max-subtracted softmax independently to every row,
// so rows of extreme magnitude cannot overflow the exponentials.
func RowSoftmax(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, z)
		mx := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - mx)
		}
		sum := floats.Sum(row)
		for j := range row {
			row[j] /= sum
		}
		out.SetRow(i, row)
	}
	return out
}

// Forward computes P = softmax(X*W + b) and caches X and P for Backprop.
func (s *SoftmaxLayer) Forward(x *mat.Dense) (*mat.Dense, error) {
	_, c := x.Dims()
	if c != s.nIn {
		return nil, fmt.Errorf("softmax forward: input has %d columns, want %d", c, s.nIn)
	}
	out := RowSoftmax(affine(x, s.w.Value, s.b))
	s.x = x
	s.out = out
	return out, nil
}

// Backprop takes the loss gradient on the output probabilities, reduces it
// through the softmax Jacobian, then fills the parameter gradients and
// returns the gradient on X.
//
// The Jacobian-vector product is applied in full: for a row with
// probabilities p and incoming gradient g,
//
//	dZ_k = p_k * (g_k - sum_j g_j * p_j)
//
// The incoming gradient must NOT be assumed to already be dZ; that shortcut
// only holds for the single-label cross-entropy seed, and silently breaks
// for any other loss.
func (s *SoftmaxLayer) Backprop(g *mat.Dense) (*mat.Dense, error) {
	if s.x == nil || s.out == nil {
		return nil, fmt.Errorf("softmax backprop: no forward pass is computed")
	}
	gr, gc := g.Dims()
	or, oc := s.out.Dims()
	if gr != or || gc != oc {
		return nil, fmt.Errorf("softmax backprop: gradient is %dx%d, want %dx%d", gr, gc, or, oc)
	}

	dz := mat.NewDense(gr, gc, nil)
	for i := 0; i < gr; i++ {
		dot := 0.0
		for j := 0; j < gc; j++ {
			dot += g.At(i, j) * s.out.At(i, j)
		}
		for j := 0; j < gc; j++ {
			p := s.out.At(i, j)
			dz.Set(i, j, p*(g.At(i, j)-dot))
		}
	}

	gx := affineBackprop(s.x, s.w, s.b, dz)
	s.x, s.out = nil, nil
	return gx, nil
}

// Params returns the weight (and bias, when enabled) paired with their
// gradient buffers.
func (s *SoftmaxLayer) Params() []*Param {
	if s.b != nil {
		return []*Param{s.w, s.b}
	}
	return []*Param{s.w}
}
