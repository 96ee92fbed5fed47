// Package model holds the descriptive record of a trained generalized
// linear model, as persisted by downstream serialization code. The
// record carries enough context (loss kernel, training metadata) to
// score new examples and to audit where the coefficients came from.
package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sergejau/photon-ml/common"
	"github.com/sergejau/photon-ml/data"
	"github.com/sergejau/photon-ml/loss"
)

// GeneralizedLinearModel is a fitted model: coefficients, intercept,
// and the loss kernel it was trained under.
type GeneralizedLinearModel struct {
	ID           string
	Coefficients []float64
	Intercept    float64
	Kernel       loss.Kernel
	Trained      time.Time
	NumExamples  int
	Converged    bool
}

// Dim returns the feature dimension the model scores.
func (m *GeneralizedLinearModel) Dim() int { return len(m.Coefficients) }

// Score returns coefficients·features + intercept.
func (m *GeneralizedLinearModel) Score(features data.Vector) (float64, error) {
	if features.Len() != m.Dim() {
		return 0, common.DimensionMismatch{Expected: m.Dim(), Found: features.Len()}
	}
	return features.Dot(m.Coefficients) + m.Intercept, nil
}

// Predict maps the score through the kernel's mean function: the
// sigmoid for logistic models, exp for poisson, identity otherwise.
func (m *GeneralizedLinearModel) Predict(features data.Vector) (float64, error) {
	s, err := m.Score(features)
	if err != nil {
		return 0, err
	}
	switch m.Kernel.(type) {
	case loss.Logistic:
		return 1 / (1 + math.Exp(-s)), nil
	case loss.Poisson:
		return math.Exp(s), nil
	default:
		return s, nil
	}
}

// glmJSON is the wire shape; the kernel goes through the interface
// registry so the concrete type survives the round trip.
type glmJSON struct {
	ID           string
	Coefficients []float64
	Intercept    float64
	Kernel       common.InterfaceMarshaler
	Trained      time.Time
	NumExamples  int
	Converged    bool
}

func (m *GeneralizedLinearModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(glmJSON{
		ID:           m.ID,
		Coefficients: m.Coefficients,
		Intercept:    m.Intercept,
		Kernel:       common.InterfaceMarshaler{I: m.Kernel},
		Trained:      m.Trained,
		NumExamples:  m.NumExamples,
		Converged:    m.Converged,
	})
}

func (m *GeneralizedLinearModel) UnmarshalJSON(b []byte) error {
	var raw glmJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kernel, ok := raw.Kernel.I.(loss.Kernel)
	if !ok {
		return &common.NotRegistered{Type: "loss.Kernel"}
	}
	*m = GeneralizedLinearModel{
		ID:           raw.ID,
		Coefficients: raw.Coefficients,
		Intercept:    raw.Intercept,
		Kernel:       kernel,
		Trained:      raw.Trained,
		NumExamples:  raw.NumExamples,
		Converged:    raw.Converged,
	}
	return nil
}
