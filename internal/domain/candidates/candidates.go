// Package candidates prunes the invoice x bank pair space before scoring.
//
// Bank records are bucketed by amount; each invoice only pairs with bank
// records in buckets overlapping its close-amount band. Small inputs skip
// bucketing entirely and take the full cross product.
//
// Pruning is required to be sound, not just fast: any pair whose amounts
// would satisfy the close-amount feature must be emitted. The band is
// therefore computed to over-cover the 1%-of-max tolerance.
package candidates

import (
	"github.com/reconly/reconcile-backend/internal/domain/record"
)

// Pair references one invoice and one bank record by their positions in the
// run's input slices.
type Pair struct {
	InvoiceIndex int
	BankIndex    int
}

// Config controls pruning behavior.
type Config struct {
	// BucketWidthCents is the amount bucket granularity.
	BucketWidthCents int64
	// CrossProductLimit: inputs with n*m at or below this skip bucketing.
	CrossProductLimit int
	// CloseAbsCents mirrors the feature extractor's absolute close
	// tolerance; the band must cover at least this much.
	CloseAbsCents int64
}

// DefaultConfig returns the defaults used by the engine.
func DefaultConfig() Config {
	return Config{
		BucketWidthCents:  1000,
		CrossProductLimit: 10000,
		CloseAbsCents:     100,
	}
}

// Generator emits candidate pairs.
type Generator struct {
	cfg Config
}

// NewGenerator creates a generator with the given config, falling back to
// defaults for zero fields.
func NewGenerator(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.BucketWidthCents <= 0 {
		cfg.BucketWidthCents = def.BucketWidthCents
	}
	if cfg.CrossProductLimit <= 0 {
		cfg.CrossProductLimit = def.CrossProductLimit
	}
	if cfg.CloseAbsCents <= 0 {
		cfg.CloseAbsCents = def.CloseAbsCents
	}
	return &Generator{cfg: cfg}
}

// Pairs returns the candidate pairs for the given inputs, ordered by
// (invoice index, bank index) so downstream processing is deterministic.
func (g *Generator) Pairs(invoices, bank []record.Record) []Pair {
	n, m := len(invoices), len(bank)
	if n == 0 || m == 0 {
		return nil
	}

	if n*m <= g.cfg.CrossProductLimit {
		pairs := make([]Pair, 0, n*m)
		for i := range invoices {
			for j := range bank {
				pairs = append(pairs, Pair{InvoiceIndex: i, BankIndex: j})
			}
		}
		return pairs
	}

	w := g.cfg.BucketWidthCents
	buckets := make(map[int64][]int, m)
	for j, b := range bank {
		key := b.AbsAmountCents() / w
		buckets[key] = append(buckets[key], j)
	}

	var pairs []Pair
	for i, inv := range invoices {
		amt := inv.AbsAmountCents()
		band := g.closeBand(amt)
		lo := (amt - band) / w
		if amt < band {
			lo = 0
		}
		hi := (amt + band) / w
		for key := lo; key <= hi; key++ {
			for _, j := range buckets[key] {
				pairs = append(pairs, Pair{InvoiceIndex: i, BankIndex: j})
			}
		}
	}
	return pairs
}

// closeBand returns a tolerance band guaranteed to cover every bank amount b
// with |a-b| <= max(CloseAbsCents, max(a,b)/100). For b > a the tolerance is
// taken on b, so the band widens to a/99 plus a cent of slack.
func (g *Generator) closeBand(amt int64) int64 {
	band := amt/99 + 1
	if g.cfg.CloseAbsCents > band {
		band = g.cfg.CloseAbsCents
	}
	return band
}

// CrossProductSize is the theoretical unpruned pair count, used for the
// reduction statistic.
func CrossProductSize(invoices, bank int) int {
	return invoices * bank
}
