// Package features turns a candidate (invoice, bank transaction) pair into a
// fixed vector of comparison features.
//
// Extraction is a pure function: no side effects, and it never fails. When an
// optional field is absent the corresponding feature takes its worst-case
// value (sentinel day difference, zero similarity) instead of an error.
package features

import (
	"math"

	"github.com/reconly/reconcile-backend/internal/domain/record"
)

// DateDiffSentinel is used for date_diff_days when either record has no
// date. Large enough to zero out any date proximity contribution while
// staying "unknown, not disqualifying".
const DateDiffSentinel = 9999

// Vector is the fixed 8-dimensional feature vector. Field order matches the
// positional layout returned by Slice, which classifier weights are trained
// against.
type Vector struct {
	AmountDiff            float64 // |invoice - bank| in currency units
	DescriptionSimilarity float64 // [0,1]
	DateDiffDays          float64 // absolute days, DateDiffSentinel when unknown
	AmountMatchExact      float64 // {0,1}
	AmountMatchClose      float64 // {0,1}
	AmountRatio           float64 // min/max in (0,1], 0 when either amount is zero
	VendorSimilarity      float64 // [0,1]
	InvoiceNumberMatch    float64 // {0,1}
}

// Slice returns the vector in its canonical positional layout.
func (v Vector) Slice() [8]float64 {
	return [8]float64{
		v.AmountDiff,
		v.DescriptionSimilarity,
		v.DateDiffDays,
		v.AmountMatchExact,
		v.AmountMatchClose,
		v.AmountRatio,
		v.VendorSimilarity,
		v.InvoiceNumberMatch,
	}
}

// Extractor computes feature vectors. The zero value is not usable; call
// DefaultExtractor or construct with explicit tolerances.
type Extractor struct {
	// CloseAbsCents is the fixed absolute tolerance for amount_match_close.
	// The effective tolerance for a pair is the larger of this and 1% of
	// the bigger amount.
	CloseAbsCents int64
}

// DefaultExtractor returns an extractor with a 1.00 currency unit absolute
// close tolerance.
func DefaultExtractor() Extractor {
	return Extractor{CloseAbsCents: 100}
}

// Extract computes the feature vector for one invoice/bank pair.
func (e Extractor) Extract(inv, bank record.Record) Vector {
	var v Vector

	invAmt := inv.AbsAmountCents()
	bankAmt := bank.AbsAmountCents()

	diff := invAmt - bankAmt
	if diff < 0 {
		diff = -diff
	}
	v.AmountDiff = float64(diff) / 100

	// a pair of zero amounts never counts as an exact amount match
	if diff == 0 && (invAmt != 0 || bankAmt != 0) {
		v.AmountMatchExact = 1
	}
	if diff <= closeToleranceCents(invAmt, bankAmt, e.CloseAbsCents) {
		v.AmountMatchClose = 1
	}
	if invAmt > 0 && bankAmt > 0 {
		lo, hi := invAmt, bankAmt
		if lo > hi {
			lo, hi = hi, lo
		}
		v.AmountRatio = float64(lo) / float64(hi)
	}

	v.DateDiffDays = DateDiffSentinel
	if inv.HasDate() && bank.HasDate() {
		days := inv.Date.Sub(*bank.Date).Hours() / 24
		v.DateDiffDays = math.Abs(days)
	}

	v.DescriptionSimilarity = TextSimilarity(inv.Description, bank.Description)

	if inv.VendorName != "" {
		v.VendorSimilarity = vendorSimilarity(inv.VendorName, bank)
	}

	if num := invoiceNumberOf(inv); num != "" {
		for _, tok := range extractInvoiceNumbers(bank.Description) {
			if tok == num {
				v.InvoiceNumberMatch = 1
				break
			}
		}
		if v.InvoiceNumberMatch == 0 && bank.ReferenceNumber != "" &&
			normalizeToken(bank.ReferenceNumber) == num {
			v.InvoiceNumberMatch = 1
		}
	}

	return v
}

// AmountClose reports whether two amounts (in cents, magnitudes) fall within
// the close-match tolerance used for amount_match_close.
func (e Extractor) AmountClose(a, b int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= closeToleranceCents(a, b, e.CloseAbsCents)
}

// closeToleranceCents is max(absTol, 1% of the larger amount).
func closeToleranceCents(a, b, absTol int64) int64 {
	hi := a
	if b > hi {
		hi = b
	}
	pct := hi / 100
	if pct > absTol {
		return pct
	}
	return absTol
}

// invoiceNumberOf prefers the structured invoice number, falling back to a
// number-shaped token in the invoice's own description.
func invoiceNumberOf(inv record.Record) string {
	if inv.InvoiceNumber != "" {
		return normalizeToken(inv.InvoiceNumber)
	}
	if inv.ReferenceNumber != "" {
		return normalizeToken(inv.ReferenceNumber)
	}
	toks := extractInvoiceNumbers(inv.Description)
	if len(toks) > 0 {
		return toks[0]
	}
	return ""
}

// vendorSimilarity compares the invoice vendor against whatever vendor-like
// text can be recovered from the bank side: the structured vendor field when
// present, otherwise the description with payment boilerplate stripped.
func vendorSimilarity(vendor string, bank record.Record) float64 {
	best := 0.0
	if bank.VendorName != "" {
		best = TextSimilarity(vendor, bank.VendorName)
	}
	if cand := extractVendor(bank.Description); cand != "" {
		if s := TextSimilarity(vendor, cand); s > best {
			best = s
		}
	}
	// a vendor whose every token appears in the raw description is a strong
	// signal even when the ratio over the full string is poor
	if s := tokenContainment(vendor, bank.Description); s > best {
		best = s
	}
	return best
}
