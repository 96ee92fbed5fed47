// Package verify checks that analytically computed gradients and
// Hessian-vector products agree with central finite-difference
// estimates computed over the same partitioned data an optimizer would
// see. It is a test harness: derivatives that fail here must not be
// handed to an optimizer.
package verify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/sergejau/photon-ml/objective"
)

// Config sets the perturbation and acceptance knobs of a check. The
// zero value is usable: all fields default.
type Config struct {
	// Delta is the one-sided perturbation applied to each coordinate.
	// Defaults to 1e-6.
	Delta float64
	// Tol is the relative/absolute acceptance tolerance. Defaults to
	// 1e-3.
	Tol float64
	// Iters is the number of parameter vectors checked. The first is
	// always the zero vector; the rest are uniform in [-1, 1].
	// Defaults to 5.
	Iters int
	// Seed drives the random parameter draws.
	Seed uint64
}

func (c Config) withDefaults() Config {
	if c.Delta == 0 {
		c.Delta = 1e-6
	}
	if c.Tol == 0 {
		c.Tol = 1e-3
	}
	if c.Iters == 0 {
		c.Iters = 5
	}
	return c
}

// A Failure is one disagreement between an analytic derivative and its
// finite-difference estimate, with enough context to debug it. A
// non-finite objective value is a Failure too, distinct from a
// tolerance miss.
type Failure struct {
	Name      string // function under check
	Iter      int    // parameter draw index; 0 is the zero vector
	Coord     int    // perturbed coordinate
	Basis     int    // Hessian direction basis index, -1 for gradient checks
	Analytic  float64
	Numeric   float64
	AbsErr    float64
	RelErr    float64
	NonFinite bool
	Err       error // set when the evaluation itself failed
}

func (f Failure) Error() string {
	where := fmt.Sprintf("%v: iteration %v, coordinate %v", f.Name, f.Iter, f.Coord)
	if f.Basis >= 0 {
		where += fmt.Sprintf(", basis direction %v", f.Basis)
	}
	if f.Err != nil {
		return fmt.Sprintf("verify: %v: evaluation failed: %v", where, f.Err)
	}
	if f.NonFinite {
		return fmt.Sprintf("verify: %v: non-finite objective value", where)
	}
	return fmt.Sprintf("verify: %v: analytic %v, central difference %v (abs err %v, rel err %v)",
		where, f.Analytic, f.Numeric, f.AbsErr, f.RelErr)
}

// withinTol compares the estimates as the acceptance rule demands:
// relative error with a denominator floored at 1, or absolute error
// under the same tolerance.
func withinTol(analytic, numeric, tol float64) (absErr, relErr float64, ok bool) {
	absErr = math.Abs(numeric - analytic)
	denom := math.Max(math.Max(math.Abs(numeric), math.Abs(analytic)), 1)
	relErr = absErr / denom
	return absErr, relErr, relErr <= tol || absErr <= tol
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// drawParams fills params for the given iteration: zero first, then
// uniform random draws.
func drawParams(params []float64, iter int, rng *rand.Rand) {
	for i := range params {
		if iter == 0 {
			params[i] = 0
		} else {
			params[i] = 2*rng.Float64() - 1
		}
	}
}

// CheckGradient compares, coordinate by coordinate, the analytic
// gradient of f against central differences of its value. Every
// failing cell is returned; the check never stops at the first.
func CheckGradient(name string, f objective.Function, cfg Config) []Failure {
	cfg = cfg.withDefaults()
	dim := f.Dim()
	rng := rand.New(rand.NewPCG(cfg.Seed, 17))
	params := make([]float64, dim)
	grad := make([]float64, dim)
	var failures []Failure

	for iter := 0; iter < cfg.Iters; iter++ {
		drawParams(params, iter, rng)
		if _, err := f.Grad(grad, params); err != nil {
			failures = append(failures, Failure{Name: name, Iter: iter, Coord: -1, Basis: -1, Err: err})
			continue
		}
		for i := 0; i < dim; i++ {
			orig := params[i]
			params[i] = orig + cfg.Delta
			hi, errHi := f.Value(params)
			params[i] = orig - cfg.Delta
			lo, errLo := f.Value(params)
			params[i] = orig

			if errHi != nil || errLo != nil {
				err := errHi
				if err == nil {
					err = errLo
				}
				failures = append(failures, Failure{Name: name, Iter: iter, Coord: i, Basis: -1, Err: err})
				continue
			}
			if !finite(hi) || !finite(lo) {
				failures = append(failures, Failure{Name: name, Iter: iter, Coord: i, Basis: -1, NonFinite: true})
				continue
			}
			numeric := (hi - lo) / (2 * cfg.Delta)
			absErr, relErr, ok := withinTol(grad[i], numeric, cfg.Tol)
			if !ok {
				failures = append(failures, Failure{
					Name: name, Iter: iter, Coord: i, Basis: -1,
					Analytic: grad[i], Numeric: numeric, AbsErr: absErr, RelErr: relErr,
				})
			}
		}
	}
	return failures
}

// CheckHessian compares analytic Hessian-vector products against
// central differences of the gradient. For basis direction e_b and
// coordinate i, the finite-difference estimate of H[b][i] comes from
// the b-th coordinate of the gradient perturbed along e_i.
func CheckHessian(name string, f objective.TwiceDiff, cfg Config) []Failure {
	cfg = cfg.withDefaults()
	dim := f.Dim()
	rng := rand.New(rand.NewPCG(cfg.Seed, 31))
	params := make([]float64, dim)
	dir := make([]float64, dim)
	var failures []Failure

	// one analytic product per basis direction
	products := make([][]float64, dim)
	for b := range products {
		products[b] = make([]float64, dim)
	}
	gradHi := make([]float64, dim)
	gradLo := make([]float64, dim)

	for iter := 0; iter < cfg.Iters; iter++ {
		drawParams(params, iter, rng)

		bad := false
		for b := 0; b < dim; b++ {
			for j := range dir {
				dir[j] = 0
			}
			dir[b] = 1
			if err := f.HessVec(products[b], params, dir); err != nil {
				failures = append(failures, Failure{Name: name, Iter: iter, Coord: -1, Basis: b, Err: err})
				bad = true
			}
		}
		if bad {
			continue
		}

		for i := 0; i < dim; i++ {
			orig := params[i]
			params[i] = orig + cfg.Delta
			_, errHi := f.Grad(gradHi, params)
			params[i] = orig - cfg.Delta
			_, errLo := f.Grad(gradLo, params)
			params[i] = orig

			if errHi != nil || errLo != nil {
				err := errHi
				if err == nil {
					err = errLo
				}
				failures = append(failures, Failure{Name: name, Iter: iter, Coord: i, Basis: -1, Err: err})
				continue
			}
			for b := 0; b < dim; b++ {
				if !finite(gradHi[b]) || !finite(gradLo[b]) {
					failures = append(failures, Failure{Name: name, Iter: iter, Coord: i, Basis: b, NonFinite: true})
					continue
				}
				numeric := (gradHi[b] - gradLo[b]) / (2 * cfg.Delta)
				analytic := products[b][i]
				absErr, relErr, ok := withinTol(analytic, numeric, cfg.Tol)
				if !ok {
					failures = append(failures, Failure{
						Name: name, Iter: iter, Coord: i, Basis: b,
						Analytic: analytic, Numeric: numeric, AbsErr: absErr, RelErr: relErr,
					})
				}
			}
		}
	}
	return failures
}

// GradientTest runs CheckGradient and reports every failing cell.
func GradientTest(t *testing.T, name string, f objective.Function, cfg Config) {
	t.Helper()
	for _, fail := range CheckGradient(name, f, cfg) {
		t.Error(fail)
	}
}

// HessianTest runs CheckHessian and reports every failing cell.
func HessianTest(t *testing.T, name string, f objective.TwiceDiff, cfg Config) {
	t.Helper()
	for _, fail := range CheckHessian(name, f, cfg) {
		t.Error(fail)
	}
}
