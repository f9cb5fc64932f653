// Package scorer collapses a feature vector into a single match confidence
// in [0,1].
//
// Two interchangeable strategies exist: a fixed-weight rule blend (the
// default when no trained model is available) and an adapter around a
// trained classifier's positive-class probability. Both are pure functions
// of the vector; the assignment engine does not care which produced the
// score. Callers pick one at wiring time.
package scorer

import (
	"math"

	"github.com/reconly/reconcile-backend/internal/domain/features"
)

// Scorer turns a feature vector into a confidence score in [0,1].
type Scorer interface {
	Score(v features.Vector) float64
}

// Weights holds the rule-blend weights. They should sum to 1; Rules
// normalizes defensively so a hand-edited config cannot push scores out of
// range.
type Weights struct {
	InvoiceNumber float64 `yaml:"invoice_number"`
	Vendor        float64 `yaml:"vendor"`
	Amount        float64 `yaml:"amount"`
	Description   float64 `yaml:"description"`
	Date          float64 `yaml:"date"`
}

// DefaultWeights are the documented production weights.
func DefaultWeights() Weights {
	return Weights{
		InvoiceNumber: 0.25,
		Vendor:        0.20,
		Amount:        0.25,
		Description:   0.15,
		Date:          0.15,
	}
}

// dateDecayDays is where date proximity stops contributing.
const dateDecayDays = 30

// Rules is the fixed-weight linear blend.
type Rules struct {
	w     Weights
	total float64
}

// NewRules creates a rule scorer. Zero or negative weight sets fall back to
// the defaults.
func NewRules(w Weights) *Rules {
	total := w.InvoiceNumber + w.Vendor + w.Amount + w.Description + w.Date
	if total <= 0 {
		w = DefaultWeights()
		total = 1
	}
	return &Rules{w: w, total: total}
}

// Score implements Scorer.
func (r *Rules) Score(v features.Vector) float64 {
	s := r.w.InvoiceNumber*v.InvoiceNumberMatch +
		r.w.Vendor*v.VendorSimilarity +
		r.w.Amount*amountScore(v) +
		r.w.Description*v.DescriptionSimilarity +
		r.w.Date*dateScore(v.DateDiffDays)
	return clamp01(s / r.total)
}

// amountScore collapses the three amount features into one sub-score.
func amountScore(v features.Vector) float64 {
	switch {
	case v.AmountMatchExact == 1:
		return 1
	case v.AmountMatchClose == 1:
		return 0.85
	default:
		return v.AmountRatio
	}
}

// dateScore decays linearly from 1 at zero days to 0 at dateDecayDays. The
// missing-date sentinel lands at 0 without special casing.
func dateScore(days float64) float64 {
	if days >= dateDecayDays {
		return 0
	}
	return 1 - days/dateDecayDays
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// PredictFunc is the contract a trained classifier exposes to the engine:
// the positive-class probability for one feature vector.
type PredictFunc func(v features.Vector) float64

// Model adapts a classifier probability into a Scorer.
type Model struct {
	predict PredictFunc
}

// NewModel wraps a classifier prediction function.
func NewModel(predict PredictFunc) *Model {
	return &Model{predict: predict}
}

// Score implements Scorer. Probabilities outside [0,1] are clamped rather
// than trusted.
func (m *Model) Score(v features.Vector) float64 {
	return clamp01(m.predict(v))
}

// Logistic is a logistic-regression classifier over the canonical feature
// layout, suitable for loading coefficients exported by an offline training
// run.
type Logistic struct {
	Coef [8]float64 `json:"coef"`
	Bias float64    `json:"bias"`
}

// Predict returns the positive-class probability.
func (l Logistic) Predict(v features.Vector) float64 {
	x := v.Slice()
	z := l.Bias
	for i, c := range l.Coef {
		z += c * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}
