package fnn

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomTable builds a word-vector table with uniform [0, 5) entries.
func randomTable(v, d int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, v*d)
	for i := range data {
		data[i] = 5 * rng.Float64()
	}
	return mat.NewDense(v, d, data)
}

func randomSamples(n, l, vocab int, rng *rand.Rand) [][]int {
	x := make([][]int, n)
	for i := range x {
		x[i] = make([]int, l)
		for j := range x[i] {
			x[i][j] = rng.IntN(vocab)
		}
	}
	return x
}

func TestLabelRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	x := randomSamples(4, 3, 6, rng)
	net, err := NewFNN(x, []int{5, 5, 2, 9}, randomTable(6, 4, rng), Config{
		HiddenSizes: []int{5},
		Act:         ActTanh,
		UseBias:     true,
		Seed:        1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, net.NumClasses())
	dense, err := net.DenseLabels([]int{5, 2, 9})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, dense)

	_, err = net.DenseLabels([]int{7})
	assert.ErrorContains(t, err, "not seen at construction")

	preds, err := net.Predict(x)
	require.NoError(t, err)
	for _, pred := range preds {
		assert.Contains(t, []int{5, 2, 9}, pred)
	}
}

func TestBackpropRequiresForward(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	x := randomSamples(3, 2, 5, rng)
	net, err := NewFNN(x, []int{0, 1, 0}, randomTable(5, 3, rng), Config{
		Act:     ActTanh,
		UseBias: true,
		Seed:    2,
	})
	require.NoError(t, err)

	_, err = net.Backprop([]int{0, 1, 0})
	assert.ErrorContains(t, err, "no forward pass")

	_, err = net.Forward(x)
	require.NoError(t, err)
	_, err = net.Backprop([]int{0, 1, 0})
	require.NoError(t, err)
	_, err = net.Backprop([]int{0, 1, 0})
	assert.ErrorContains(t, err, "no forward pass")
}

func TestCostRejectsDegenerateProbability(t *testing.T) {
	probs := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		1.0, 0.0,
	})
	_, err := nll(probs, []int{0, 0})
	require.NoError(t, err)
	_, err = nll(probs, []int{0, 1})
	assert.ErrorContains(t, err, "degenerate probability")
	_, err = nll(probs, []int{0, 2})
	assert.ErrorContains(t, err, "out of range")
}

func TestCostNonIncreasingUnderBatchTrain(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	x := randomSamples(20, 4, 12, rng)
	y := make([]int, 20)
	for i := range y {
		y[i] = rng.IntN(3)
	}
	net, err := NewFNN(x, y, randomTable(12, 6, rng), Config{
		HiddenSizes: []int{10},
		Act:         ActTanh,
		UseBias:     true,
		Seed:        4,
	})
	require.NoError(t, err)
	dense, err := net.DenseLabels(y)
	require.NoError(t, err)

	prev, err := net.Cost(x, dense)
	require.NoError(t, err)
	for step := 0; step < 20; step++ {
		require.NoError(t, net.BatchTrain(x, dense, 0.001))
		cost, err := net.Cost(x, dense)
		require.NoError(t, err)
		assert.LessOrEqual(t, cost, prev+1e-6, "step %d", step)
		prev = cost
	}
}

func TestTrainedPredictionsMatchLabels(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	x := [][]int{{0, 1}, {1, 0}, {2, 3}, {3, 2}}
	labels := []int{7, 7, 9, 9}
	net, err := NewFNN(x, labels, randomTable(4, 3, rng), Config{
		HiddenSizes: []int{8},
		Act:         ActTanh,
		UseBias:     true,
		Seed:        5,
	})
	require.NoError(t, err)

	epochs, err := net.MinibatchTrain(0.1, 2, 2000, false)
	require.NoError(t, err)
	require.Less(t, epochs, 2000, "training did not converge")

	preds, err := net.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, labels, preds)
}

func TestWordVecUpdatesOnlyWhenEnabled(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	x := randomSamples(6, 3, 8, rng)
	y := []int{0, 1, 0, 1, 0, 1}

	frozen := randomTable(8, 4, rng)
	before := mat.DenseCopyOf(frozen)
	net, err := NewFNN(x, y, frozen, Config{HiddenSizes: []int{5}, Act: ActTanh, UseBias: true, Seed: 6})
	require.NoError(t, err)
	require.NoError(t, net.BatchTrain(x, y, 0.1))
	assert.True(t, mat.Equal(before, frozen), "frozen table must not change")

	live := mat.DenseCopyOf(before)
	net, err = NewFNN(x, y, live, Config{
		HiddenSizes: []int{5}, Act: ActTanh, UseBias: true, UpdateWordVec: true, Seed: 6,
	})
	require.NoError(t, err)
	require.NoError(t, net.BatchTrain(x, y, 0.1))
	assert.False(t, mat.Equal(before, live), "enabled updates must touch the table")
}

func TestMinibatchTrainValidatesArguments(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	x := randomSamples(4, 2, 5, rng)
	net, err := NewFNN(x, []int{0, 1, 0, 1}, randomTable(5, 3, rng), Config{Act: ActTanh, Seed: 7})
	require.NoError(t, err)

	_, err = net.MinibatchTrain(0.1, 0, 10, false)
	assert.ErrorContains(t, err, "minibatch")
	_, err = net.MinibatchTrain(0.1, 2, 0, false)
	assert.ErrorContains(t, err, "max epochs")
}

// TestEndToEndScenario is the reference run: 100 samples of 5 tokens over a
// 20x10 table, hidden widths 30/20/10, tanh, bias on, embeddings frozen,
// lr 0.01, minibatch 5, at most 100 epochs. With a fixed seed it must
// either converge to zero training error before the cap or run the full
// 100 epochs.
func TestEndToEndScenario(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	x := randomSamples(100, 5, 20, rng)
	labels := make([]int, 100)
	for i := range labels {
		labels[i] = rng.IntN(20)
	}
	net, err := NewFNN(x, labels, randomTable(20, 10, rng), Config{
		HiddenSizes: []int{30, 20, 10},
		Act:         ActTanh,
		UseBias:     true,
		Seed:        42,
	})
	require.NoError(t, err)

	epochs, err := net.MinibatchTrain(0.01, 5, 100, false)
	require.NoError(t, err)
	require.GreaterOrEqual(t, epochs, 1)
	require.LessOrEqual(t, epochs, 100)

	preds, err := net.Predict(x)
	require.NoError(t, err)
	wrong := 0
	for i := range labels {
		if preds[i] != labels[i] {
			wrong++
		}
	}
	if epochs < 100 {
		assert.Zero(t, wrong, "early stop implies zero training error")
	}
}
