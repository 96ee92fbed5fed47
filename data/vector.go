// Package data holds the labeled-example record consumed by the loss
// kernels, its dense and sparse feature representations, and seeded
// synthetic generators for testing objectives at scale.
package data

import (
	"gonum.org/v1/gonum/floats"
)

var lenMismatch = "photon/data: length mismatch"

// Vector is a fixed-dimension feature vector. Implementations are
// read-only once constructed.
type Vector interface {
	Len() int

	// Dot returns the inner product with the dense slice w. Panics if
	// len(w) != Len().
	Dot(w []float64) float64

	// AddScaled adds alpha times the vector into dst in place. Panics
	// if len(dst) != Len().
	AddScaled(dst []float64, alpha float64)
}

// Dense is a feature vector with one stored value per dimension.
type Dense []float64

func (d Dense) Len() int { return len(d) }

func (d Dense) Dot(w []float64) float64 {
	if len(w) != len(d) {
		panic(lenMismatch)
	}
	return floats.Dot(d, w)
}

func (d Dense) AddScaled(dst []float64, alpha float64) {
	if len(dst) != len(d) {
		panic(lenMismatch)
	}
	floats.AddScaled(dst, alpha, d)
}

// Sparse stores only the nonzero entries of a vector of dimension N.
// Ind must be strictly increasing and Val must have the same length.
type Sparse struct {
	N   int
	Ind []int
	Val []float64
}

func (s Sparse) Len() int { return s.N }

func (s Sparse) Dot(w []float64) float64 {
	if len(w) != s.N {
		panic(lenMismatch)
	}
	var dot float64
	for i, ind := range s.Ind {
		dot += s.Val[i] * w[ind]
	}
	return dot
}

func (s Sparse) AddScaled(dst []float64, alpha float64) {
	if len(dst) != s.N {
		panic(lenMismatch)
	}
	for i, ind := range s.Ind {
		dst[ind] += alpha * s.Val[i]
	}
}

// ToSparse returns the sparse form of d, dropping exact zeros.
func ToSparse(d Dense) Sparse {
	s := Sparse{N: len(d)}
	for i, v := range d {
		if v != 0 {
			s.Ind = append(s.Ind, i)
			s.Val = append(s.Val, v)
		}
	}
	return s
}
