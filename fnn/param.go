package fnn

import (
	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/mat"
)

// Param couples a trainable tensor with its gradient buffer. Both are
// allocated at layer construction with identical shapes; every backward pass
// rewrites Grad in place, so the pairing can never drift out of alignment.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, value *mat.Dense) *Param {
	return &Param{
		Name:  name,
		Value: value,
		Grad:  utils.ZerosLike(value),
	}
}

// Layer is the closed forward/backprop contract shared by the hidden and
// softmax layers. The embedding layer is deliberately outside this set: its
// input is integer indices and its gradients are sparse row updates, so the
// orchestrator handles it separately.
type Layer interface {
	Forward(x *mat.Dense) (*mat.Dense, error)
	Backprop(g *mat.Dense) (*mat.Dense, error)
	Params() []*Param
}
