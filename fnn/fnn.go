package fnn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/yukunfeng/nnfl/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// convergeTol is the zero-one loss below which minibatch training stops.
const convergeTol = 1e-5

// Config collects the FNN hyperparameters.
type Config struct {
	HiddenSizes   []int   // one hidden layer per entry
	Act           ActFunc // hidden-layer activation
	UseBias       bool
	UpdateWordVec bool // whether training writes back into the word-vector table
	Seed          int64
}

// FNN is a feedforward classifier over token-index sequences: an embedding
// lookup, zero or more hidden layers and a softmax output layer. It owns the
// training set it was constructed with and is the only writer of the shared
// word-vector table.
type FNN struct {
	x      [][]int
	labelY []int // raw labels as supplied
	y      []int // dense labels in [0, K)

	labelToY map[int]int
	yToLabel []int

	wordVec   *mat.Dense
	embedding *EmbeddingLayer
	layers    []Layer // hidden layers then the softmax layer
	params    []*Param

	updateWordVec bool

	// forward cache, consumed by the paired Backprop call
	forwardOut *mat.Dense
}

// NewFNN builds the layer stack for the given training set. Raw labels may
// be arbitrary integers; they are remapped onto 0..K-1 in first-appearance
// order and the mapping is fixed for the lifetime of the network.
func NewFNN(x [][]int, labelY []int, wordVec *mat.Dense, conf Config) (*FNN, error) {
	if len(x) == 0 || len(x) != len(labelY) {
		return nil, fmt.Errorf("fnn: %d samples but %d labels", len(x), len(labelY))
	}
	if !conf.Act.valid() {
		return nil, fmt.Errorf("fnn: unknown activation %q", conf.Act)
	}

	embedding, err := NewEmbeddingLayer(wordVec)
	if err != nil {
		return nil, err
	}

	f := &FNN{
		x:             x,
		labelY:        labelY,
		wordVec:       wordVec,
		embedding:     embedding,
		updateWordVec: conf.UpdateWordVec,
		labelToY:      make(map[int]int),
	}

	// Normalize labels to a dense 0..K-1 range, in first-appearance order.
	for _, label := range labelY {
		if _, ok := f.labelToY[label]; !ok {
			f.labelToY[label] = len(f.yToLabel)
			f.yToLabel = append(f.yToLabel, label)
		}
	}
	f.y = make([]int, len(labelY))
	for i, label := range labelY {
		f.y[i] = f.labelToY[label]
	}

	src := rand.NewPCG(uint64(conf.Seed), uint64(conf.Seed))
	nIn := len(x[0]) * embedding.Dim()
	for i, nHidden := range conf.HiddenSizes {
		hidden, err := NewHiddenLayer(nIn, nHidden, conf.Act, conf.UseBias, src)
		if err != nil {
			return nil, err
		}
		for _, p := range hidden.Params() {
			p.Name = fmt.Sprintf("hidden%d.%s", i+1, p.Name)
		}
		f.layers = append(f.layers, hidden)
		nIn = nHidden
	}
	softmax, err := NewSoftmaxLayer(nIn, len(f.yToLabel), conf.UseBias, src)
	if err != nil {
		return nil, err
	}
	for _, p := range softmax.Params() {
		p.Name = "softmax." + p.Name
	}
	f.layers = append(f.layers, softmax)

	for _, layer := range f.layers {
		f.params = append(f.params, layer.Params()...)
	}
	return f, nil
}

// Params returns every trainable parameter paired with its gradient buffer,
// in construction order.
func (f *FNN) Params() []*Param { return f.params }

// NumClasses returns the number of distinct labels seen at construction.
func (f *FNN) NumClasses() int { return len(f.yToLabel) }

// DenseLabels maps raw labels through the bijection built at construction.
// Labels unseen back then are an error: the network cannot train on or
// predict them.
func (f *FNN) DenseLabels(labels []int) ([]int, error) {
	out := make([]int, len(labels))
	for i, label := range labels {
		y, ok := f.labelToY[label]
		if !ok {
			return nil, fmt.Errorf("fnn: label %d was not seen at construction", label)
		}
		out[i] = y
	}
	return out, nil
}

// Forward runs x through embedding, hidden layers and softmax, returning
// and caching the N x K probability matrix.
func (f *FNN) Forward(x [][]int) (*mat.Dense, error) {
	out, err := f.embedding.Forward(x)
	if err != nil {
		return nil, err
	}
	for _, layer := range f.layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	f.forwardOut = out
	return out, nil
}

// Cost runs a fresh forward pass and returns the total negative
// log-likelihood over the batch. A probability of exactly zero at a true
// class is reported as an error instead of silently turning into -Inf.
func (f *FNN) Cost(x [][]int, y []int) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("fnn cost: %d samples but %d labels", len(x), len(y))
	}
	probs, err := f.Forward(x)
	if err != nil {
		return 0, err
	}
	return nll(probs, y)
}

// nll is the total negative log-likelihood -sum_i log(p[i, y_i]).
func nll(probs *mat.Dense, y []int) (float64, error) {
	_, classes := probs.Dims()
	cost := 0.0
	for i, yi := range y {
		if yi < 0 || yi >= classes {
			return 0, fmt.Errorf("fnn cost: dense label %d at sample %d out of range [0,%d)", yi, i, classes)
		}
		p := probs.At(i, yi)
		if p <= 0 || math.IsNaN(p) {
			return 0, fmt.Errorf("fnn cost: degenerate probability %g for true class %d at sample %d", p, yi, i)
		}
		cost -= math.Log(p)
	}
	return cost, nil
}

// Backprop computes gradients on every parameter for the most recent
// forward pass. y holds dense labels. The output gradient is seeded with
// -1/p[i,y_i] at the true class, the derivative of -log(p), and propagated
// in reverse layer order. It returns the gradient reaching the embedding
// output, which BatchTrain feeds to the embedding layer when word-vector
// updates are enabled.
func (f *FNN) Backprop(y []int) (*mat.Dense, error) {
	if f.forwardOut == nil {
		return nil, fmt.Errorf("fnn backprop: no forward pass is computed")
	}
	out := f.forwardOut
	f.forwardOut = nil

	r, c := out.Dims()
	if len(y) != r {
		return nil, fmt.Errorf("fnn backprop: %d labels for %d samples", len(y), r)
	}
	g := mat.NewDense(r, c, nil)
	for i, yi := range y {
		if yi < 0 || yi >= c {
			return nil, fmt.Errorf("fnn backprop: dense label %d at sample %d out of range [0,%d)", yi, i, c)
		}
		g.Set(i, yi, -1.0/out.At(i, yi))
	}

	var err error
	for i := len(f.layers) - 1; i >= 0; i-- {
		g, err = f.layers[i].Backprop(g)
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BatchTrain runs one forward/backward pass over the batch and applies the
// SGD update p -= lr*g to every parameter. When word-vector updates are
// enabled, the touched table rows get the same update; duplicate indices in
// the batch were already summed by the embedding layer, so each row is
// written exactly once.
func (f *FNN) BatchTrain(x [][]int, y []int, lr float64) error {
	if _, err := f.Forward(x); err != nil {
		return err
	}
	gx, err := f.Backprop(y)
	if err != nil {
		return err
	}
	for _, p := range f.params {
		sub(p.Value, lr, p.Grad)
	}
	if f.updateWordVec {
		indexs, grads, err := f.embedding.Backprop(gx)
		if err != nil {
			return err
		}
		dim := f.embedding.Dim()
		for r, idx := range indexs {
			for k := 0; k < dim; k++ {
				f.wordVec.Set(idx, k, f.wordVec.At(idx, k)-lr*grads.At(r, k))
			}
		}
	}
	return nil
}

// MinibatchTrain trains on the construction-time dataset in contiguous
// minibatches, a smaller remainder batch included, until either the
// zero-one loss over the full training set falls within 1e-5 of zero or
// maxEpochs is reached. It returns the number of epochs run.
func (f *FNN) MinibatchTrain(lr float64, minibatch, maxEpochs int, verbose bool) (int, error) {
	if minibatch <= 0 {
		return 0, fmt.Errorf("fnn minibatch train: invalid minibatch size %d", minibatch)
	}
	if maxEpochs <= 0 {
		return 0, fmt.Errorf("fnn minibatch train: invalid max epochs %d", maxEpochs)
	}

	n := len(f.y)
	epoch := 0
	for epoch = 1; epoch <= maxEpochs; epoch++ {
		nBatches := n / minibatch
		for b := 0; b < nBatches; b++ {
			lo, hi := b*minibatch, (b+1)*minibatch
			if err := f.BatchTrain(f.x[lo:hi], f.y[lo:hi], lr); err != nil {
				return epoch, err
			}
		}
		if nBatches*minibatch != n {
			if err := f.BatchTrain(f.x[nBatches*minibatch:], f.y[nBatches*minibatch:], lr); err != nil {
				return epoch, err
			}
		}

		preds, err := f.Predict(f.x)
		if err != nil {
			return epoch, err
		}
		zeroOne, err := utils.ZeroOneLoss(f.labelY, preds)
		if err != nil {
			return epoch, err
		}
		if verbose {
			cost, err := f.Cost(f.x, f.y)
			if err != nil {
				return epoch, err
			}
			fmt.Printf("epoch: %d training, on train data, cross-entropy: %f, zero-one loss: %f\n",
				epoch, cost, zeroOne)
		}
		if zeroOne <= convergeTol {
			return epoch, nil
		}
	}
	return maxEpochs, nil
}

// Predict returns the original label of the arg-max class for every sample.
func (f *FNN) Predict(x [][]int) ([]int, error) {
	probs, err := f.Forward(x)
	if err != nil {
		return nil, err
	}
	r, c := probs.Dims()
	row := make([]float64, c)
	preds := make([]int, r)
	for i := 0; i < r; i++ {
		mat.Row(row, i, probs)
		preds[i] = f.yToLabel[floats.MaxIdx(row)]
	}
	return preds, nil
}

// sub applies p -= lr*g in place.
func sub(p *mat.Dense, lr float64, g *mat.Dense) {
	r, c := p.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			p.Set(i, j, p.At(i, j)-lr*g.At(i, j))
		}
	}
}
