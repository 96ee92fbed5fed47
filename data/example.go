package data

import "errors"

// ErrNegativeWeight is returned when an example is constructed with a
// weight below zero.
var ErrNegativeWeight = errors.New("photon/data: negative example weight")

// LabeledExample is one observation: a response, its features, an
// additive offset folded into the linear score, and a non-negative
// importance weight. It is never mutated after construction.
type LabeledExample struct {
	Label    float64
	Features Vector
	Offset   float64
	Weight   float64
}

// NewLabeledExample builds an example with the given offset and weight.
func NewLabeledExample(label float64, features Vector, offset, weight float64) (LabeledExample, error) {
	if weight < 0 {
		return LabeledExample{}, ErrNegativeWeight
	}
	return LabeledExample{Label: label, Features: features, Offset: offset, Weight: weight}, nil
}

// Simple builds a unit-weight, zero-offset example.
func Simple(label float64, features Vector) LabeledExample {
	return LabeledExample{Label: label, Features: features, Weight: 1}
}

// Margin returns the linear score params·x + offset.
func (e *LabeledExample) Margin(params []float64) float64 {
	return e.Features.Dot(params) + e.Offset
}
