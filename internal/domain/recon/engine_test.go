package recon_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconly/reconcile-backend/internal/domain/features"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
)

func newEngine() *recon.Engine {
	return recon.NewEngine(nil, features.DefaultExtractor(), nil, nil)
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func invoice(desc string, cents int64) record.Record {
	return record.Record{Source: record.SourceInvoice, Description: desc, AmountCents: cents}
}

func bankRec(desc string, cents int64) record.Record {
	return record.Record{Source: record.SourceBank, Description: desc, AmountCents: cents}
}

// checkInvariant asserts that every record is either matched or unmatched,
// never both, never neither.
func checkInvariant(t *testing.T, run *recon.Run) {
	t.Helper()
	matches := run.Matches()
	assert.Equal(t, run.TotalInvoices(), len(matches)+len(run.UnmatchedInvoiceIndices()))
	assert.Equal(t, run.TotalBank(), len(matches)+len(run.UnmatchedBankIndices()))

	seenInv := make(map[int]bool)
	seenBank := make(map[int]bool)
	for _, m := range matches {
		assert.False(t, seenInv[m.InvoiceIndex], "invoice %d matched twice", m.InvoiceIndex)
		assert.False(t, seenBank[m.BankIndex], "bank %d matched twice", m.BankIndex)
		seenInv[m.InvoiceIndex] = true
		seenBank[m.BankIndex] = true
	}
	for _, idx := range run.UnmatchedInvoiceIndices() {
		assert.False(t, seenInv[idx], "invoice %d both matched and unmatched", idx)
	}
	for _, idx := range run.UnmatchedBankIndices() {
		assert.False(t, seenBank[idx], "bank %d both matched and unmatched", idx)
	}
}

func TestEngine_MatchesExactInvoice(t *testing.T) {
	e := newEngine()

	invoices := []record.Record{
		{Source: record.SourceInvoice, Description: "Consulting services", AmountCents: 150000,
			VendorName: "Acme Corp", InvoiceNumber: "INV-2024-001", Date: date("2024-01-15")},
	}
	bank := []record.Record{
		{Source: record.SourceBank, Description: "Payment to Acme Corp ref INV-2024-001",
			AmountCents: -150000, Date: date("2024-01-17")},
	}

	run := e.Run(invoices, bank, 0.75)

	matches := run.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].InvoiceIndex)
	assert.Equal(t, 0, matches[0].BankIndex)
	assert.False(t, matches[0].Manual)
	assert.GreaterOrEqual(t, matches[0].Score, 0.75)
	assert.NotEmpty(t, matches[0].ID)
	checkInvariant(t, run)
}

func TestEngine_NoMatchBelowThreshold(t *testing.T) {
	e := newEngine()

	invoices := []record.Record{invoice("Office chairs", 420000)}
	bank := []record.Record{bankRec("Payroll transfer week 3", -991235)}

	run := e.Run(invoices, bank, 0.75)

	assert.Empty(t, run.Matches())
	assert.Equal(t, []int{0}, run.UnmatchedInvoiceIndices())
	assert.Equal(t, []int{0}, run.UnmatchedBankIndices())
	checkInvariant(t, run)
}

func TestEngine_OneToOneCompetition(t *testing.T) {
	e := newEngine()

	// two invoices compete for one bank record; only the better one wins
	invoices := []record.Record{
		{Source: record.SourceInvoice, Description: "Hosting invoice", AmountCents: 50000,
			VendorName: "Initech", InvoiceNumber: "HST-100"},
		{Source: record.SourceInvoice, Description: "Hosting invoice duplicate", AmountCents: 50000,
			VendorName: "Initech"},
	}
	bank := []record.Record{
		bankRec("Payment to Initech ref HST-100", -50000),
	}

	run := e.Run(invoices, bank, 0.5)

	matches := run.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].InvoiceIndex, "invoice with the ref match must win")
	assert.Equal(t, []int{1}, run.UnmatchedInvoiceIndices())
	checkInvariant(t, run)
}

func TestEngine_TiedInvoicesLowerIndexWins(t *testing.T) {
	e := newEngine()

	// two identical invoices, one bank record: scores tie exactly
	invoices := []record.Record{
		invoice("Subscription", 5000),
		invoice("Subscription", 5000),
	}
	bank := []record.Record{bankRec("Subscription", -5000)}

	run := e.Run(invoices, bank, 0.3)

	matches := run.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].InvoiceIndex)
	assert.Equal(t, []int{1}, run.UnmatchedInvoiceIndices())
	checkInvariant(t, run)
}

func TestEngine_TieBreaksAreDeterministic(t *testing.T) {
	e := newEngine()

	// identical invoices, identical bank records: scores tie exactly
	invoices := []record.Record{
		invoice("Subscription", 9900),
		invoice("Subscription", 9900),
	}
	bank := []record.Record{
		bankRec("Subscription", -9900),
		bankRec("Subscription", -9900),
	}

	for i := 0; i < 5; i++ {
		run := e.Run(invoices, bank, 0.3)
		matches := run.Matches()
		require.Len(t, matches, 2)
		// lower invoice index pairs with lower bank index
		byInv := map[int]int{}
		for _, m := range matches {
			byInv[m.InvoiceIndex] = m.BankIndex
		}
		assert.Equal(t, 0, byInv[0])
		assert.Equal(t, 1, byInv[1])
		checkInvariant(t, run)
	}
}

func TestEngine_IdenticalInputsSameMatchSet(t *testing.T) {
	e := newEngine()

	var invoices, bank []record.Record
	for i := 0; i < 40; i++ {
		invoices = append(invoices, record.Record{
			Source:        record.SourceInvoice,
			Description:   fmt.Sprintf("Invoice %d services", i),
			AmountCents:   int64(10000 + i*777),
			InvoiceNumber: fmt.Sprintf("INV-%03d", i),
		})
		bank = append(bank, record.Record{
			Source:      record.SourceBank,
			Description: fmt.Sprintf("Payment ref INV-%03d", i),
			AmountCents: -int64(10000 + i*777),
		})
	}

	type pair struct{ inv, bank int }
	extract := func(run *recon.Run) map[pair]float64 {
		out := map[pair]float64{}
		for _, m := range run.Matches() {
			out[pair{m.InvoiceIndex, m.BankIndex}] = m.Score
		}
		return out
	}

	first := extract(e.Run(invoices, bank, 0.4))
	assert.Len(t, first, 40)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, extract(e.Run(invoices, bank, 0.4)))
	}
}

func TestEngine_EmptyInputs(t *testing.T) {
	e := newEngine()

	run := e.Run(nil, []record.Record{bankRec("orphan", -100)}, 0.75)
	assert.Empty(t, run.Matches())
	assert.Equal(t, 0, run.TotalInvoices())
	assert.Equal(t, []int{0}, run.UnmatchedBankIndices())
	checkInvariant(t, run)

	run = e.Run(nil, nil, 0.75)
	assert.Empty(t, run.Matches())
	checkInvariant(t, run)
}

func TestEngine_ZeroThresholdUsesDefault(t *testing.T) {
	e := newEngine()

	// similar-but-weak pair: would pass a 0.05 threshold, not the default
	invoices := []record.Record{invoice("Misc expense", 10000)}
	bank := []record.Record{bankRec("Misc", -90000)}

	run := e.Run(invoices, bank, 0)
	assert.Equal(t, recon.DefaultThreshold, run.Threshold)
	assert.Empty(t, run.Matches())
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	id := recon.NewRunID(now)
	assert.Regexp(t, `^REC-20240115-[0-9A-F]{8}$`, id)
	assert.NotEqual(t, id, recon.NewRunID(now))
}
