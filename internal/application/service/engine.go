// Package service assembles domain components from configuration.
package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/reconly/reconcile-backend/internal/domain/candidates"
	"github.com/reconly/reconcile-backend/internal/domain/features"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/domain/scorer"
	"github.com/reconly/reconcile-backend/internal/infrastructure/config"
)

// NewEngine builds a matching engine from configuration. With an empty
// model path the rule-based scorer is used; otherwise the exported
// classifier weights are loaded and the two are interchangeable from the
// engine's point of view.
func NewEngine(cfg config.MatchingConfig, logger *slog.Logger) (*recon.Engine, error) {
	closeTol, err := toleranceCents(cfg.CloseAmountTolerance, 100)
	if err != nil {
		return nil, fmt.Errorf("close_amount_tolerance: %w", err)
	}
	bucketWidth, err := toleranceCents(cfg.BucketWidth, 1000)
	if err != nil {
		return nil, fmt.Errorf("bucket_width: %w", err)
	}

	genCfg := candidates.DefaultConfig()
	genCfg.CloseAbsCents = closeTol
	genCfg.BucketWidthCents = bucketWidth
	if cfg.CrossProductLimit > 0 {
		genCfg.CrossProductLimit = cfg.CrossProductLimit
	}
	gen := candidates.NewGenerator(genCfg)

	ext := features.Extractor{CloseAbsCents: closeTol}

	s, err := newScorer(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	return recon.NewEngine(gen, ext, s, logger), nil
}

// newScorer picks the rule blend or a trained classifier.
func newScorer(modelPath string) (scorer.Scorer, error) {
	if modelPath == "" {
		return scorer.NewRules(scorer.DefaultWeights()), nil
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}
	var l scorer.Logistic
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}
	return scorer.NewModel(l.Predict), nil
}

// toleranceCents parses a decimal amount string, falling back to the given
// default when unset.
func toleranceCents(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	cents, err := record.ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return cents, nil
}
