package data

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Condition selects the shape of a synthetic distribution.
type Condition int

const (
	// Benign draws well-conditioned data.
	Benign Condition = iota
	// Outlier mixes in a fraction of examples with features two orders
	// of magnitude larger than the rest.
	Outlier
)

// outlierFraction is the share of examples inflated under the Outlier
// condition.
const outlierFraction = 0.1

// Classification draws n unit-weight examples of dimension dim with
// standard normal features and labels in {-1, +1}. Deterministic for a
// fixed seed.
func Classification(cond Condition, seed uint64, n, dim int) []LabeledExample {
	src := rand.NewPCG(seed, 0x9e3779b97f4a7c15)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	coin := distuv.Bernoulli{P: 0.5, Src: src}
	examples := make([]LabeledExample, n)
	for i := range examples {
		x := drawFeatures(cond, norm, coin, dim)
		examples[i] = Simple(2*coin.Rand()-1, x)
	}
	return examples
}

// Regression draws n unit-weight examples whose labels are a noisy
// linear function of the features. Deterministic for a fixed seed.
func Regression(cond Condition, seed uint64, n, dim int) []LabeledExample {
	src := rand.NewPCG(seed, 0x2545f4914f6cdd1d)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	coin := distuv.Bernoulli{P: 0.5, Src: src}
	truth := make([]float64, dim)
	for i := range truth {
		truth[i] = norm.Rand()
	}
	examples := make([]LabeledExample, n)
	for i := range examples {
		x := drawFeatures(cond, norm, coin, dim)
		examples[i] = Simple(x.Dot(truth)+norm.Rand(), x)
	}
	return examples
}

// Counts draws n unit-weight examples with Poisson-distributed
// non-negative integer labels whose rate is exp of a small linear
// score. Deterministic for a fixed seed.
func Counts(cond Condition, seed uint64, n, dim int) []LabeledExample {
	src := rand.NewPCG(seed, 0x94d049bb133111eb)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	coin := distuv.Bernoulli{P: 0.5, Src: src}
	truth := make([]float64, dim)
	for i := range truth {
		truth[i] = 0.1 * norm.Rand()
	}
	examples := make([]LabeledExample, n)
	for i := range examples {
		x := drawFeatures(cond, norm, coin, dim)
		rate := distuv.Poisson{Lambda: clampedExp(x.Dot(truth)), Src: src}
		examples[i] = Simple(rate.Rand(), x)
	}
	return examples
}

func drawFeatures(cond Condition, norm distuv.Normal, coin distuv.Bernoulli, dim int) Dense {
	x := make(Dense, dim)
	for j := range x {
		x[j] = norm.Rand()
	}
	if cond == Outlier {
		pick := distuv.Bernoulli{P: outlierFraction, Src: coin.Src}
		if pick.Rand() == 1 {
			for j := range x {
				x[j] *= 100
			}
		}
	}
	return x
}

// clampedExp bounds the Poisson rate away from zero and overflow so
// the generator cannot produce degenerate labels.
func clampedExp(s float64) float64 {
	switch {
	case s > 5:
		s = 5
	case s < -5:
		s = -5
	}
	return math.Exp(s)
}
