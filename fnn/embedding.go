package fnn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// EmbeddingLayer turns a matrix of token indices into dense input rows by
// looking up and concatenating word vectors. The word-vector table is
// borrowed from the caller, never copied: the orchestrator may update its
// rows in place between passes.
type EmbeddingLayer struct {
	wordVec *mat.Dense // V x D, owned by the caller
	vocab   int
	dim     int

	// forward cache, consumed by the paired Backprop call
	x [][]int
}

// NewEmbeddingLayer wraps the shared V x D word-vector table.
func NewEmbeddingLayer(wordVec *mat.Dense) (*EmbeddingLayer, error) {
	if wordVec == nil {
		return nil, fmt.Errorf("embedding: nil word-vector table")
	}
	v, d := wordVec.Dims()
	if v == 0 || d == 0 {
		return nil, fmt.Errorf("embedding: empty word-vector table (%dx%d)", v, d)
	}
	return &EmbeddingLayer{wordVec: wordVec, vocab: v, dim: d}, nil
}

// Dim returns the word-vector width D.
func (e *EmbeddingLayer) Dim() int { return e.dim }

// Forward looks up every index of the N x L input and concatenates the L
// vectors of each sample, producing an N x L*D matrix. Any index outside
// [0, V) is an error.
func (e *EmbeddingLayer) Forward(x [][]int) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("embedding forward: empty input")
	}
	l := len(x[0])
	if l == 0 {
		return nil, fmt.Errorf("embedding forward: zero-length sample")
	}
	out := mat.NewDense(len(x), l*e.dim, nil)
	for i, sample := range x {
		if len(sample) != l {
			return nil, fmt.Errorf("embedding forward: sample %d has %d tokens, want %d", i, len(sample), l)
		}
		for j, idx := range sample {
			if idx < 0 || idx >= e.vocab {
				return nil, fmt.Errorf("embedding forward: token index %d at [%d,%d] out of range [0,%d)", idx, i, j, e.vocab)
			}
			for k := 0; k < e.dim; k++ {
				out.Set(i, j*e.dim+k, e.wordVec.At(idx, k))
			}
		}
	}
	e.x = x
	return out, nil
}

// Backprop slices the N x L*D output gradient back into per-position chunks
// and sums each chunk into the accumulator of its token index. Indices that
// occur several times in the batch therefore sum their contributions. It
// returns the distinct touched indices in ascending order together with one
// accumulated gradient row per index; the table itself is left untouched.
func (e *EmbeddingLayer) Backprop(g *mat.Dense) ([]int, *mat.Dense, error) {
	if e.x == nil {
		return nil, nil, fmt.Errorf("embedding backprop: no forward pass is computed")
	}
	x := e.x
	e.x = nil

	gr, gc := g.Dims()
	l := len(x[0])
	if gr != len(x) || gc != l*e.dim {
		return nil, nil, fmt.Errorf("embedding backprop: gradient is %dx%d, want %dx%d", gr, gc, len(x), l*e.dim)
	}

	acc := make(map[int][]float64)
	for i, sample := range x {
		for j, idx := range sample {
			row, ok := acc[idx]
			if !ok {
				row = make([]float64, e.dim)
				acc[idx] = row
			}
			for k := 0; k < e.dim; k++ {
				row[k] += g.At(i, j*e.dim+k)
			}
		}
	}

	indexs := make([]int, 0, len(acc))
	for idx := range acc {
		indexs = append(indexs, idx)
	}
	sort.Ints(indexs)

	grads := mat.NewDense(len(indexs), e.dim, nil)
	for r, idx := range indexs {
		grads.SetRow(r, acc[idx])
	}
	return indexs, grads, nil
}
