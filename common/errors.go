package common

import (
	"errors"
	"fmt"
)

// ErrNonFinite is returned when a per-example or aggregate computation
// produces NaN or Inf. Non-finite values are surfaced immediately and
// never clamped.
var ErrNonFinite = errors.New("photon: non-finite objective value")

// ErrNotTwiceDiff is returned when a Hessian-vector product is
// requested from a function that is not twice differentiable.
var ErrNotTwiceDiff = errors.New("photon: function is not twice differentiable")

// DimensionMismatch reports a vector whose length does not equal the
// configured problem dimension.
type DimensionMismatch struct {
	Expected int
	Found    int
}

func (d DimensionMismatch) Error() string {
	return fmt.Sprintf("photon: dimension mismatch. expected: %v, found: %v", d.Expected, d.Found)
}

// CheckDim returns a DimensionMismatch unless v has length dim.
func CheckDim(v []float64, dim int) error {
	if len(v) != dim {
		return DimensionMismatch{Expected: dim, Found: len(v)}
	}
	return nil
}
