package fnn

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// GradientChecker verifies analytic gradients against centered finite
// differences. It is a correctness oracle, not a performance path: every
// scalar parameter entry costs two full forward passes.
type GradientChecker struct {
	Epsilon   float64 // finite-difference step
	Tolerance float64 // largest accepted absolute-or-relative divergence
}

// NewGradientChecker returns a checker with the usual step and tolerance.
func NewGradientChecker() *GradientChecker {
	return &GradientChecker{Epsilon: 1e-4, Tolerance: 1e-4}
}

// Mismatch is one parameter entry whose numeric and analytic gradients
// diverged.
type Mismatch struct {
	Param    string
	Row, Col int
	Analytic float64
	Numeric  float64
}

// MismatchError reports every diverging entry, never a bare pass/fail.
type MismatchError struct {
	Mismatches []Mismatch
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gradient check: %d mismatched entries", len(e.Mismatches))
	for _, m := range e.Mismatches {
		fmt.Fprintf(&b, "\n  %s[%d,%d]: analytic=%g numeric=%g diff=%g",
			m.Param, m.Row, m.Col, m.Analytic, m.Numeric, math.Abs(m.Analytic-m.Numeric))
	}
	return b.String()
}

func (c *GradientChecker) agree(analytic, numeric float64) bool {
	diff := math.Abs(analytic - numeric)
	if diff <= c.Tolerance {
		return true
	}
	return diff/math.Max(math.Abs(analytic)+math.Abs(numeric), 1e-8) <= c.Tolerance
}

// derivativeAt estimates d f / d entry with a centered difference of step
// Epsilon, restoring the entry afterwards.
func (c *GradientChecker) derivativeAt(value *mat.Dense, i, j int, loss func() (float64, error)) (float64, error) {
	orig := value.At(i, j)
	var lossErr error
	numeric := fd.Derivative(func(v float64) float64 {
		value.Set(i, j, v)
		l, err := loss()
		if err != nil && lossErr == nil {
			lossErr = err
		}
		return l
	}, orig, &fd.Settings{Formula: fd.Central, Step: c.Epsilon})
	value.Set(i, j, orig)
	if lossErr != nil {
		return 0, lossErr
	}
	return numeric, nil
}

// CheckNN validates the gradients of every parameter of the network against
// finite differences of Cost on the given batch. y holds dense labels.
func (c *GradientChecker) CheckNN(net *FNN, x [][]int, y []int) error {
	if _, err := net.Forward(x); err != nil {
		return err
	}
	if _, err := net.Backprop(y); err != nil {
		return err
	}

	loss := func() (float64, error) { return net.Cost(x, y) }
	var bad []Mismatch
	for _, p := range net.Params() {
		r, cols := p.Value.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < cols; j++ {
				numeric, err := c.derivativeAt(p.Value, i, j, loss)
				if err != nil {
					return err
				}
				analytic := p.Grad.At(i, j)
				if !c.agree(analytic, numeric) {
					bad = append(bad, Mismatch{Param: p.Name, Row: i, Col: j, Analytic: analytic, Numeric: numeric})
				}
			}
		}
	}
	if len(bad) > 0 {
		return &MismatchError{Mismatches: bad}
	}
	return nil
}

// CheckLayer validates a single dense layer in isolation under the
// pseudo-loss sum_ij coef_ij * y_ij with fixed, per-entry-varying
// coefficients, whose output gradient is exactly coef. The seed is
// deliberately not a cross-entropy gradient, so a softmax backward that
// skips the Jacobian product cannot sneak through. (A uniform seed would be
// useless for softmax: its rows sum to one identically, making every
// gradient of a plain output sum vanish.) Both the parameter gradients and
// the propagated input gradient are checked.
func (c *GradientChecker) CheckLayer(layer Layer, x *mat.Dense) error {
	out, err := layer.Forward(x)
	if err != nil {
		return err
	}
	r, cols := out.Dims()
	coef := mat.NewDense(r, cols, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			coef.Set(i, j, 0.1*float64(i+1)+float64(j+1))
		}
	}
	gx, err := layer.Backprop(coef)
	if err != nil {
		return err
	}

	loss := func() (float64, error) {
		y, err := layer.Forward(x)
		if err != nil {
			return 0, err
		}
		s := 0.0
		for i := 0; i < r; i++ {
			for j := 0; j < cols; j++ {
				s += coef.At(i, j) * y.At(i, j)
			}
		}
		return s, nil
	}

	var bad []Mismatch
	for _, p := range layer.Params() {
		pr, pc := p.Value.Dims()
		for i := 0; i < pr; i++ {
			for j := 0; j < pc; j++ {
				numeric, err := c.derivativeAt(p.Value, i, j, loss)
				if err != nil {
					return err
				}
				analytic := p.Grad.At(i, j)
				if !c.agree(analytic, numeric) {
					bad = append(bad, Mismatch{Param: p.Name, Row: i, Col: j, Analytic: analytic, Numeric: numeric})
				}
			}
		}
	}

	xr, xc := x.Dims()
	for i := 0; i < xr; i++ {
		for j := 0; j < xc; j++ {
			numeric, err := c.derivativeAt(x, i, j, loss)
			if err != nil {
				return err
			}
			analytic := gx.At(i, j)
			if !c.agree(analytic, numeric) {
				bad = append(bad, Mismatch{Param: "input", Row: i, Col: j, Analytic: analytic, Numeric: numeric})
			}
		}
	}
	if len(bad) > 0 {
		return &MismatchError{Mismatches: bad}
	}
	return nil
}
