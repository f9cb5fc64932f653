package candidates_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconly/reconcile-backend/internal/domain/candidates"
	"github.com/reconly/reconcile-backend/internal/domain/features"
	"github.com/reconly/reconcile-backend/internal/domain/record"
)

func recs(amounts ...int64) []record.Record {
	out := make([]record.Record, len(amounts))
	for i, a := range amounts {
		out[i] = record.Record{AmountCents: a, Description: fmt.Sprintf("rec %d", i)}
	}
	return out
}

func TestPairs_SmallInputsFullCrossProduct(t *testing.T) {
	g := candidates.NewGenerator(candidates.DefaultConfig())

	invoices := recs(100, 5000000, 99)
	bank := recs(1, 100)

	pairs := g.Pairs(invoices, bank)
	assert.Len(t, pairs, 6, "below the limit every pair is a candidate")
}

func TestPairs_EmptyInputs(t *testing.T) {
	g := candidates.NewGenerator(candidates.DefaultConfig())
	assert.Empty(t, g.Pairs(nil, recs(100)))
	assert.Empty(t, g.Pairs(recs(100), nil))
}

func TestPairs_Deterministic(t *testing.T) {
	g := candidates.NewGenerator(candidates.DefaultConfig())
	invoices := recs(100, 200, 300)
	bank := recs(300, 200, 100)

	first := g.Pairs(invoices, bank)
	second := g.Pairs(invoices, bank)
	assert.Equal(t, first, second)
}

// Bucketed pruning must never lose a pair the close-amount feature would
// fire on, including pairs straddling bucket boundaries.
func TestPairs_BucketingKeepsAllClosePairs(t *testing.T) {
	cfg := candidates.Config{
		BucketWidthCents:  1000,
		CrossProductLimit: 1, // force bucketing
		CloseAbsCents:     100,
	}
	g := candidates.NewGenerator(cfg)
	ext := features.Extractor{CloseAbsCents: cfg.CloseAbsCents}

	rng := rand.New(rand.NewSource(7))
	var invoices, bank []record.Record
	for i := 0; i < 300; i++ {
		invoices = append(invoices, record.Record{AmountCents: rng.Int63n(5000000)})
		bank = append(bank, record.Record{AmountCents: -rng.Int63n(5000000)})
	}
	// seed exact straddle cases around a bucket edge
	invoices = append(invoices, recs(99999, 100001, 999950)...)
	bank = append(bank, recs(-100001, -99999, -1000050)...)

	got := make(map[candidates.Pair]bool)
	for _, p := range g.Pairs(invoices, bank) {
		got[p] = true
	}

	for i, inv := range invoices {
		for j, b := range bank {
			if ext.AmountClose(inv.AbsAmountCents(), b.AbsAmountCents()) {
				require.True(t, got[candidates.Pair{InvoiceIndex: i, BankIndex: j}],
					"lost close pair: invoice %d (%d) bank %d (%d)",
					i, inv.AbsAmountCents(), j, b.AbsAmountCents())
			}
		}
	}
}

func TestPairs_BucketingPrunes(t *testing.T) {
	cfg := candidates.Config{
		BucketWidthCents:  1000,
		CrossProductLimit: 1,
		CloseAbsCents:     100,
	}
	g := candidates.NewGenerator(cfg)

	// amounts far apart: pruning should leave far fewer than n*m pairs
	var invoices, bank []record.Record
	for i := int64(0); i < 100; i++ {
		invoices = append(invoices, record.Record{AmountCents: i * 1000000})
		bank = append(bank, record.Record{AmountCents: i*1000000 + 500000})
	}
	pairs := g.Pairs(invoices, bank)
	assert.Less(t, len(pairs), 100*100/2)
}

func TestCrossProductSize(t *testing.T) {
	assert.Equal(t, 12, candidates.CrossProductSize(3, 4))
	assert.Equal(t, 0, candidates.CrossProductSize(0, 4))
}
