package fnn

import (
	"fmt"
	"math/rand/v2"

	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/mat"
)

// HiddenLayer is a dense affine transform followed by an elementwise
// activation: Y = act(X*W + b).
type HiddenLayer struct {
	nIn, nOut int
	act       ActFunc
	useBias   bool

	w *Param // nIn x nOut
	b *Param // 1 x nOut, nil when bias is disabled

	// forward cache, consumed by the paired Backprop call
	x   *mat.Dense
	out *mat.Dense
}

// NewHiddenLayer initializes the weights uniformly in +-sqrt(6/(nIn+nOut)),
// quadrupled for sigmoid so the pre-activations land in its useful range.
// The bias starts at zero.
func NewHiddenLayer(nIn, nOut int, act ActFunc, useBias bool, src rand.Source) (*HiddenLayer, error) {
	if nIn <= 0 || nOut <= 0 {
		return nil, fmt.Errorf("hidden layer: invalid sizes nIn=%d nOut=%d", nIn, nOut)
	}
	if !act.valid() {
		return nil, fmt.Errorf("hidden layer: unknown activation %q", act)
	}
	bound := utils.XavierBound(nIn, nOut)
	if act == ActSigmoid {
		bound *= 4
	}
	h := &HiddenLayer{
		nIn:     nIn,
		nOut:    nOut,
		act:     act,
		useBias: useBias,
		w:       newParam("w", mat.NewDense(nIn, nOut, utils.RandomArray(nIn*nOut, bound, src))),
	}
	if useBias {
		h.b = newParam("b", mat.NewDense(1, nOut, nil))
	}
	return h, nil
}

// Forward computes Y = act(X*W + b) and caches X and Y for Backprop.
func (h *HiddenLayer) Forward(x *mat.Dense) (*mat.Dense, error) {
	_, c := x.Dims()
	if c != h.nIn {
		return nil, fmt.Errorf("hidden forward: input has %d columns, want %d", c, h.nIn)
	}
	z := affine(x, h.w.Value, h.b)
	out, err := activate(h.act, z)
	if err != nil {
		return nil, err
	}
	h.x = x
	h.out = out
	return out, nil
}

// Backprop takes the loss gradient on Y, writes the weight and bias
// gradients into the layer's Params, and returns the gradient on X.
func (h *HiddenLayer) Backprop(g *mat.Dense) (*mat.Dense, error) {
	if h.x == nil || h.out == nil {
		return nil, fmt.Errorf("hidden backprop: no forward pass is computed")
	}
	gr, gc := g.Dims()
	or, oc := h.out.Dims()
	if gr != or || gc != oc {
		return nil, fmt.Errorf("hidden backprop: gradient is %dx%d, want %dx%d", gr, gc, or, oc)
	}

	prime, err := activatePrime(h.act, h.out)
	if err != nil {
		return nil, err
	}
	dz := mat.NewDense(gr, gc, nil)
	dz.MulElem(g, prime)

	gx := affineBackprop(h.x, h.w, h.b, dz)
	h.x, h.out = nil, nil
	return gx, nil
}

// Params returns the weight (and bias, when enabled) paired with their
// gradient buffers.
func (h *HiddenLayer) Params() []*Param {
	if h.b != nil {
		return []*Param{h.w, h.b}
	}
	return []*Param{h.w}
}

// affine computes X*W, adding the 1 x nOut bias row to every sample row
// when b is non-nil.
func affine(x, w *mat.Dense, b *Param) *mat.Dense {
	xr, _ := x.Dims()
	_, wc := w.Dims()
	z := mat.NewDense(xr, wc, nil)
	z.Mul(x, w)
	if b != nil {
		for i := 0; i < xr; i++ {
			for j := 0; j < wc; j++ {
				z.Set(i, j, z.At(i, j)+b.Value.At(0, j))
			}
		}
	}
	return z
}

// affineBackprop fills in the parameter gradients for Z = X*W + b given
// dZ and returns dX. Weight gradient is X^T*dZ, bias gradient the column
// sums of dZ, input gradient dZ*W^T.
func affineBackprop(x *mat.Dense, w, b *Param, dz *mat.Dense) *mat.Dense {
	w.Grad.Mul(x.T(), dz)
	if b != nil {
		dzr, dzc := dz.Dims()
		for j := 0; j < dzc; j++ {
			s := 0.0
			for i := 0; i < dzr; i++ {
				s += dz.At(i, j)
			}
			b.Grad.Set(0, j, s)
		}
	}
	xr, xc := x.Dims()
	gx := mat.NewDense(xr, xc, nil)
	gx.Mul(dz, w.Value.T())
	return gx
}
