package fnn

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestCheckNNAcrossConfigurations sweeps both activations, bias on and off,
// and zero, one and two hidden layers. Every analytic gradient must agree
// with its centered finite difference.
func TestCheckNNAcrossConfigurations(t *testing.T) {
	hiddens := [][]int{nil, {7}, {7, 6}}
	for _, act := range []ActFunc{ActTanh, ActSigmoid} {
		for _, useBias := range []bool{true, false} {
			for _, hidden := range hiddens {
				name := fmt.Sprintf("%s_bias=%v_hidden=%v", act, useBias, hidden)
				t.Run(name, func(t *testing.T) {
					rng := rand.New(rand.NewPCG(9, 9))
					x := randomSamples(6, 4, 10, rng)
					labels := []int{0, 1, 2, 0, 1, 2}
					net, err := NewFNN(x, labels, randomTable(10, 5, rng), Config{
						HiddenSizes: hidden,
						Act:         act,
						UseBias:     useBias,
						Seed:        9,
					})
					require.NoError(t, err)
					dense, err := net.DenseLabels(labels)
					require.NoError(t, err)

					gc := NewGradientChecker()
					assert.NoError(t, gc.CheckNN(net, x, dense))
				})
			}
		}
	}
}

func TestCheckNNAfterTraining(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 10))
	x := randomSamples(8, 3, 9, rng)
	labels := []int{4, 4, 8, 8, 4, 8, 4, 8}
	net, err := NewFNN(x, labels, randomTable(9, 4, rng), Config{
		HiddenSizes: []int{6},
		Act:         ActSigmoid,
		UseBias:     true,
		Seed:        10,
	})
	require.NoError(t, err)

	_, err = net.MinibatchTrain(0.05, 4, 20, false)
	require.NoError(t, err)

	dense, err := net.DenseLabels(labels)
	require.NoError(t, err)
	assert.NoError(t, NewGradientChecker().CheckNN(net, x, dense))
}

// doubledGradLayer deliberately corrupts its analytic gradients so the
// checker's structured report can be exercised.
type doubledGradLayer struct {
	*HiddenLayer
}

func (d *doubledGradLayer) Backprop(g *mat.Dense) (*mat.Dense, error) {
	gx, err := d.HiddenLayer.Backprop(g)
	if err != nil {
		return nil, err
	}
	for _, p := range d.Params() {
		p.Grad.Scale(2, p.Grad)
	}
	return gx, nil
}

func TestCheckLayerReportsOffendingEntries(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))
	inner, err := NewHiddenLayer(3, 2, ActTanh, true, rng)
	require.NoError(t, err)

	err = NewGradientChecker().CheckLayer(&doubledGradLayer{inner}, randomInput(4, 3, rng))
	require.Error(t, err)

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	require.NotEmpty(t, mismatch.Mismatches)
	for _, m := range mismatch.Mismatches {
		assert.NotEmpty(t, m.Param)
		assert.NotEqual(t, m.Analytic, m.Numeric)
	}
	assert.Contains(t, err.Error(), "mismatched entries")
}

func TestMismatchErrorLists(t *testing.T) {
	err := &MismatchError{Mismatches: []Mismatch{
		{Param: "hidden1.w", Row: 2, Col: 3, Analytic: 1.5, Numeric: 0.5},
	}}
	assert.Contains(t, err.Error(), "hidden1.w[2,3]")
	assert.Contains(t, err.Error(), "analytic=1.5")
	assert.Contains(t, err.Error(), "numeric=0.5")
}
