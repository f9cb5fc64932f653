package recon

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/reconly/reconcile-backend/internal/domain/candidates"
	"github.com/reconly/reconcile-backend/internal/domain/features"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/domain/scorer"
)

// DefaultThreshold is the acceptance threshold when the caller passes none.
const DefaultThreshold = 0.75

// parallelScoringMin is the candidate count above which scoring fans out
// across CPUs. Scoring is pure and independent per pair, so results land in
// a pre-allocated slice by index and stay deterministic.
const parallelScoringMin = 2048

// Engine runs the matching pipeline: candidate generation, feature
// extraction, scoring, greedy one-to-one assignment. It holds no per-run
// state and is safe for concurrent use across runs.
type Engine struct {
	gen       *candidates.Generator
	extractor features.Extractor
	scorer    scorer.Scorer
	logger    *slog.Logger
}

// NewEngine wires an engine. A nil scorer falls back to the default rule
// blend, a nil logger to slog.Default.
func NewEngine(gen *candidates.Generator, ext features.Extractor, s scorer.Scorer, logger *slog.Logger) *Engine {
	if gen == nil {
		gen = candidates.NewGenerator(candidates.DefaultConfig())
	}
	if s == nil {
		s = scorer.NewRules(scorer.DefaultWeights())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gen: gen, extractor: ext, scorer: s, logger: logger}
}

// scoredPair is a transient candidate with its features collapsed to a
// score. Discarded once assignment decides.
type scoredPair struct {
	candidates.Pair
	score float64
}

// Run executes one full reconciliation. An empty input list is not an
// error: it yields a run with zero matches and everything unmatched.
// Identical inputs with an identical threshold and scorer produce an
// identical match set.
func (e *Engine) Run(invoices, bank []record.Record, threshold float64) *Run {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	now := time.Now().UTC()
	run := newRun(NewRunID(now), threshold, invoices, bank, now)
	run.crossProduct = candidates.CrossProductSize(len(invoices), len(bank))

	pairs := e.gen.Pairs(invoices, bank)
	run.candidateCount = len(pairs)

	scored := e.scorePairs(invoices, bank, pairs)

	accepted := assign(scored, threshold, len(invoices), len(bank))
	for _, p := range accepted {
		run.accept(Match{
			ID:           newMatchID(),
			RunID:        run.ID,
			InvoiceIndex: p.InvoiceIndex,
			BankIndex:    p.BankIndex,
			Score:        p.score,
			Manual:       false,
			CreatedAt:    now,
		})
	}

	e.logger.Info("reconciliation complete",
		"run_id", run.ID,
		"invoices", len(invoices),
		"bank_records", len(bank),
		"candidates", len(pairs),
		"matches", len(accepted),
		"threshold", threshold,
	)
	return run
}

// scorePairs extracts features and scores every candidate. Large candidate
// sets are scored in parallel chunks.
func (e *Engine) scorePairs(invoices, bank []record.Record, pairs []candidates.Pair) []scoredPair {
	scored := make([]scoredPair, len(pairs))

	scoreRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := pairs[i]
			v := e.extractor.Extract(invoices[p.InvoiceIndex], bank[p.BankIndex])
			scored[i] = scoredPair{Pair: p, score: e.scorer.Score(v)}
		}
	}

	if len(pairs) < parallelScoringMin {
		scoreRange(0, len(pairs))
		return scored
	}

	workers := runtime.NumCPU()
	chunk := (len(pairs) + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(pairs); lo += chunk {
		hi := lo + chunk
		if hi > len(pairs) {
			hi = len(pairs)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			scoreRange(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return scored
}

// assign selects a one-to-one subset greedily: sort by score descending
// with a deterministic tie-break (lower invoice index, then lower bank
// index), accept a pair iff both endpoints are still free. Pairs under the
// threshold are dropped before assignment, so an accepted-but-low-confidence
// match can never exist.
//
// Greedy is not globally optimal; a maximum-weight bipartite matching could
// beat it on total score. The O(k log k) cost and stable, testable output
// won that trade.
func assign(scored []scoredPair, threshold float64, nInvoices, nBank int) []scoredPair {
	eligible := scored[:0:0]
	for _, p := range scored {
		if p.score >= threshold {
			eligible = append(eligible, p)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		if eligible[i].InvoiceIndex != eligible[j].InvoiceIndex {
			return eligible[i].InvoiceIndex < eligible[j].InvoiceIndex
		}
		return eligible[i].BankIndex < eligible[j].BankIndex
	})

	invFree := make([]bool, nInvoices)
	bankFree := make([]bool, nBank)
	for i := range invFree {
		invFree[i] = true
	}
	for j := range bankFree {
		bankFree[j] = true
	}

	var accepted []scoredPair
	for _, p := range eligible {
		if invFree[p.InvoiceIndex] && bankFree[p.BankIndex] {
			invFree[p.InvoiceIndex] = false
			bankFree[p.BankIndex] = false
			accepted = append(accepted, p)
		}
	}
	return accepted
}
