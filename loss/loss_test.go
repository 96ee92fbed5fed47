package loss

import (
	"math"
	"testing"

	"github.com/sergejau/photon-ml/common"
)

const (
	fdStep = 1e-6
	fdTol  = 1e-6
	tol    = 1e-12
)

var _ TwiceDiffKernel = Logistic{}
var _ TwiceDiffKernel = Squared{}
var _ TwiceDiffKernel = Poisson{}
var _ Kernel = SmoothedHinge{}

// margins away from the smoothed hinge kinks at z = 0 and z = 1
var testMargins = []float64{-3, -0.51, 0.32, 0.5, 1.7, 4}
var testLabels = []float64{-1, 1}

func checkDeriv(t *testing.T, k Kernel) {
	t.Helper()
	for _, label := range testLabels {
		for _, margin := range testMargins {
			deriv := k.Deriv(margin, label)
			fd := (k.Loss(margin+fdStep, label) - k.Loss(margin-fdStep, label)) / (2 * fdStep)
			if math.Abs(deriv-fd) > fdTol {
				t.Errorf("%v: Deriv doesn't match finite difference at margin %v, label %v. deriv: %v, fd: %v",
					k, margin, label, deriv, fd)
			}
		}
	}
}

func checkSecondDeriv(t *testing.T, k TwiceDiffKernel) {
	t.Helper()
	for _, label := range testLabels {
		for _, margin := range testMargins {
			second := k.SecondDeriv(margin, label)
			fd := (k.Deriv(margin+fdStep, label) - k.Deriv(margin-fdStep, label)) / (2 * fdStep)
			if math.Abs(second-fd) > fdTol*math.Max(1, math.Abs(second)) {
				t.Errorf("%v: SecondDeriv doesn't match finite difference at margin %v, label %v. second: %v, fd: %v",
					k, margin, label, second, fd)
			}
		}
	}
}

func TestLogistic(t *testing.T) {
	k := Logistic{}
	if got := k.Loss(0, 1); math.Abs(got-math.Ln2) > tol {
		t.Errorf("Loss at zero margin. Expected: %v, Found: %v", math.Ln2, got)
	}
	if got := k.Deriv(0, 1); math.Abs(got+0.5) > tol {
		t.Errorf("Deriv at zero margin. Expected: -0.5, Found: %v", got)
	}
	if got := k.SecondDeriv(0, 1); math.Abs(got-0.25) > tol {
		t.Errorf("SecondDeriv at zero margin. Expected: 0.25, Found: %v", got)
	}
	checkDeriv(t, k)
	checkSecondDeriv(t, k)

	// Large margins must not overflow.
	for _, margin := range []float64{-700, 700} {
		for _, label := range testLabels {
			if v := k.Loss(margin, label); math.IsInf(v, 0) || math.IsNaN(v) {
				t.Errorf("Loss not finite at margin %v, label %v: %v", margin, label, v)
			}
			if d := k.Deriv(margin, label); math.IsInf(d, 0) || math.IsNaN(d) {
				t.Errorf("Deriv not finite at margin %v, label %v: %v", margin, label, d)
			}
		}
	}

	if err := common.InterfaceTestMarshalAndUnmarshal(k); err != nil {
		t.Errorf("Error marshaling and unmarshaling: %v", err)
	}
}

func TestSquared(t *testing.T) {
	k := Squared{}
	if got := k.Loss(1.5, 1); math.Abs(got-0.25) > tol {
		t.Errorf("Loss doesn't match. Expected: 0.25, Found: %v", got)
	}
	if got := k.Deriv(1.5, 1); math.Abs(got-1) > tol {
		t.Errorf("Deriv doesn't match. Expected: 1, Found: %v", got)
	}
	if got := k.SecondDeriv(1.5, 1); got != 2 {
		t.Errorf("SecondDeriv doesn't match. Expected: 2, Found: %v", got)
	}
	checkDeriv(t, k)
	checkSecondDeriv(t, k)
	if err := common.InterfaceTestMarshalAndUnmarshal(k); err != nil {
		t.Errorf("Error marshaling and unmarshaling: %v", err)
	}
}

func TestPoisson(t *testing.T) {
	k := Poisson{}
	if got := k.Loss(0, 2); math.Abs(got-1) > tol {
		t.Errorf("Loss doesn't match. Expected: 1, Found: %v", got)
	}
	if got := k.Deriv(0, 2); math.Abs(got+1) > tol {
		t.Errorf("Deriv doesn't match. Expected: -1, Found: %v", got)
	}
	if got := k.SecondDeriv(0, 2); math.Abs(got-1) > tol {
		t.Errorf("SecondDeriv doesn't match. Expected: 1, Found: %v", got)
	}
	// count labels only
	for _, label := range []float64{0, 1, 3} {
		for _, margin := range testMargins {
			deriv := k.Deriv(margin, label)
			fd := (k.Loss(margin+fdStep, label) - k.Loss(margin-fdStep, label)) / (2 * fdStep)
			if math.Abs(deriv-fd) > fdTol*math.Max(1, math.Abs(deriv)) {
				t.Errorf("Deriv doesn't match finite difference at margin %v, label %v. deriv: %v, fd: %v",
					margin, label, deriv, fd)
			}
		}
	}
	checkSecondDeriv(t, k)
	if err := common.InterfaceTestMarshalAndUnmarshal(k); err != nil {
		t.Errorf("Error marshaling and unmarshaling: %v", err)
	}
}

func TestSmoothedHinge(t *testing.T) {
	k := SmoothedHinge{}
	for _, test := range []struct {
		Margin float64
		Label  float64
		Loss   float64
		Name   string
	}{
		{Margin: 2, Label: 1, Loss: 0, Name: "flat region"},
		{Margin: 0.5, Label: 1, Loss: 0.125, Name: "quadratic region"},
		{Margin: -1, Label: 1, Loss: 1.5, Name: "linear region"},
		{Margin: 1, Label: -1, Loss: 1.5, Name: "linear region, negative label"},
	} {
		if got := k.Loss(test.Margin, test.Label); math.Abs(got-test.Loss) > tol {
			t.Errorf("Loss doesn't match for case %v. Expected: %v, Found: %v", test.Name, test.Loss, got)
		}
	}
	checkDeriv(t, k)

	if _, ok := Kernel(k).(TwiceDiffKernel); ok {
		t.Errorf("SmoothedHinge must not be twice differentiable")
	}
	if err := common.InterfaceTestMarshalAndUnmarshal(k); err != nil {
		t.Errorf("Error marshaling and unmarshaling: %v", err)
	}
}
