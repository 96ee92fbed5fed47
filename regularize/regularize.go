// Package regularize layers L1 and L2 penalty terms onto any objective
// function without modifying it. Penalties depend only on the
// parameters, never on the dataset, and decorators stack: wrapping an
// already-wrapped function adds another independent term, and the order
// of wrapping does not change the mathematical result.
package regularize

import (
	"gonum.org/v1/gonum/floats"

	"github.com/sergejau/photon-ml/common"
	"github.com/sergejau/photon-ml/objective"
)

// Penalty is a parameter-only term added on top of a data-dependent
// objective.
type Penalty interface {
	// Loss is the penalty value at the given parameters.
	Loss(params []float64) float64

	// AddDeriv accumulates the penalty derivative into deriv in place.
	AddDeriv(params, deriv []float64)
}

// TwoNorm is the penalty ɣ‖params‖₂².
type TwoNorm struct {
	Gamma float64 // Relative weight compared to the loss term
}

func (t TwoNorm) Loss(params []float64) float64 {
	n := floats.Norm(params, 2)
	return t.Gamma * n * n
}

func (t TwoNorm) AddDeriv(params, deriv []float64) {
	for i, p := range params {
		deriv[i] += 2 * t.Gamma * p
	}
}

// OneNorm is the penalty ɣ‖params‖₁. Its subgradient uses the
// convention sign(0) = 0.
type OneNorm struct {
	Gamma float64
}

func (o OneNorm) Loss(params []float64) float64 {
	return o.Gamma * floats.Norm(params, 1)
}

func (o OneNorm) AddDeriv(params, deriv []float64) {
	for i, p := range params {
		switch {
		case p > 0:
			deriv[i] += o.Gamma
		case p < 0:
			deriv[i] -= o.Gamma
		}
	}
}

// L2 wraps an objective with a TwoNorm penalty of weight Gamma. The
// wrapped function keeps its differentiability: L2 stays twice
// differentiable exactly when F is.
type L2 struct {
	F     objective.Function
	Gamma float64
}

func (l L2) Dim() int { return l.F.Dim() }

func (l L2) Value(params []float64) (float64, error) {
	v, err := l.F.Value(params)
	if err != nil {
		return 0, err
	}
	return v + TwoNorm{Gamma: l.Gamma}.Loss(params), nil
}

func (l L2) Grad(grad, params []float64) (float64, error) {
	v, err := l.F.Grad(grad, params)
	if err != nil {
		return 0, err
	}
	pen := TwoNorm{Gamma: l.Gamma}
	pen.AddDeriv(params, grad)
	return v + pen.Loss(params), nil
}

// HessVec adds 2ɣ·dir to the wrapped product. The capability check
// happens before any partial computation.
func (l L2) HessVec(dst, params, dir []float64) error {
	td, ok := l.F.(objective.TwiceDiff)
	if !ok {
		return common.ErrNotTwiceDiff
	}
	if err := td.HessVec(dst, params, dir); err != nil {
		return err
	}
	floats.AddScaled(dst, 2*l.Gamma, dir)
	return nil
}

// L1 wraps an objective with a OneNorm penalty of weight Gamma. It has
// no HessVec method: the one-norm is not twice differentiable at zero,
// so an L1-wrapped function never satisfies objective.TwiceDiff.
type L1 struct {
	F     objective.Function
	Gamma float64
}

func (l L1) Dim() int { return l.F.Dim() }

func (l L1) Value(params []float64) (float64, error) {
	v, err := l.F.Value(params)
	if err != nil {
		return 0, err
	}
	return v + OneNorm{Gamma: l.Gamma}.Loss(params), nil
}

func (l L1) Grad(grad, params []float64) (float64, error) {
	v, err := l.F.Grad(grad, params)
	if err != nil {
		return 0, err
	}
	pen := OneNorm{Gamma: l.Gamma}
	pen.AddDeriv(params, grad)
	return v + pen.Loss(params), nil
}
