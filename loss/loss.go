// Package loss defines the per-example loss kernels for generalized
// linear models. A kernel is pure scalar math in the linear margin
// s = params·x + offset and the label; the objective layer turns the
// scalar derivatives into vector contributions, so kernels stay out of
// the allocation path of the innermost loop.
package loss

import (
	"encoding/gob"
	"math"

	"github.com/sergejau/photon-ml/common"
)

// init registers all of the kernels for encoding and decoding.
func init() {
	gob.Register(Logistic{})
	gob.Register(Squared{})
	gob.Register(Poisson{})
	gob.Register(SmoothedHinge{})
	common.Register(Logistic{})
	common.Register(Squared{})
	common.Register(Poisson{})
	common.Register(SmoothedHinge{})
}

// A Kernel is a once-differentiable per-example loss. Loss returns the
// unweighted loss at the given margin and Deriv its derivative with
// respect to the margin. Kernels are stateless.
type Kernel interface {
	Loss(margin, label float64) float64
	Deriv(margin, label float64) float64
	String() string
}

// A TwiceDiffKernel also has a second derivative with respect to the
// margin, which is what a Hessian-vector product needs.
type TwiceDiffKernel interface {
	Kernel
	SecondDeriv(margin, label float64) float64
}

// sigmoid is stable for large |x| in either direction.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Logistic is the binary logistic loss log(1+exp(-y·s)) for labels y
// in {-1, +1}.
type Logistic struct{}

func (Logistic) String() string { return "logistic" }

func (Logistic) Loss(margin, label float64) float64 {
	z := label * margin
	// log1p(exp(-z)) overflows for very negative z; fold the linear
	// part out first.
	if z > 0 {
		return math.Log1p(math.Exp(-z))
	}
	return -z + math.Log1p(math.Exp(z))
}

func (Logistic) Deriv(margin, label float64) float64 {
	return -label * sigmoid(-label*margin)
}

func (Logistic) SecondDeriv(margin, label float64) float64 {
	sig := sigmoid(margin)
	return sig * (1 - sig)
}

// Squared is the squared-error loss (s-y)².
type Squared struct{}

func (Squared) String() string { return "squared" }

func (Squared) Loss(margin, label float64) float64 {
	d := margin - label
	return d * d
}

func (Squared) Deriv(margin, label float64) float64 {
	return 2 * (margin - label)
}

func (Squared) SecondDeriv(margin, label float64) float64 {
	return 2
}

// Poisson is the Poisson log-likelihood loss exp(s) - y·s for count
// labels y ≥ 0. The exp overflows to +Inf for large margins; the
// objective layer reports that as a non-finite value rather than
// clamping here.
type Poisson struct{}

func (Poisson) String() string { return "poisson" }

func (Poisson) Loss(margin, label float64) float64 {
	return math.Exp(margin) - label*margin
}

func (Poisson) Deriv(margin, label float64) float64 {
	return math.Exp(margin) - label
}

func (Poisson) SecondDeriv(margin, label float64) float64 {
	return math.Exp(margin)
}

// SmoothedHinge is the piecewise-quadratic smoothing of the hinge loss
// max(0, 1-y·s) with unit smoothing width:
//
//	0           for z ≥ 1
//	0.5 - z     for z ≤ 0
//	0.5(1-z)²   otherwise
//
// with z = y·s. It is once but not twice differentiable, so it is not
// a TwiceDiffKernel.
type SmoothedHinge struct{}

func (SmoothedHinge) String() string { return "smoothed hinge" }

func (SmoothedHinge) Loss(margin, label float64) float64 {
	z := label * margin
	switch {
	case z >= 1:
		return 0
	case z <= 0:
		return 0.5 - z
	}
	d := 1 - z
	return 0.5 * d * d
}

func (SmoothedHinge) Deriv(margin, label float64) float64 {
	z := label * margin
	switch {
	case z >= 1:
		return 0
	case z <= 0:
		return -label
	}
	return label * (z - 1)
}
