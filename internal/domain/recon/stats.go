package recon

// Stats is a pure read-side view over a run's current state. Every ratio is
// defined to be zero when its denominator is zero; no statistics call can
// fail.
type Stats struct {
	MatchCount       int `json:"match_count"`
	ManualMatchCount int `json:"manual_match_count"`
	AutoMatchCount   int `json:"auto_match_count"`

	UnmatchedInvoiceCount int `json:"unmatched_invoice_count"`
	UnmatchedBankCount    int `json:"unmatched_bank_count"`

	// InvoiceAccuracy is matches / total invoices, in [0,1].
	InvoiceAccuracy float64 `json:"invoice_accuracy"`
	// BankAccuracy is matches / total bank records, in [0,1].
	BankAccuracy float64 `json:"bank_accuracy"`
	// ReductionPercentage is how much of the theoretical cross product the
	// candidate generator pruned away, 0-100.
	ReductionPercentage float64 `json:"reduction_percentage"`

	// Amount aggregates over invoice magnitudes, in cents.
	MatchedAmountCents      int64 `json:"matched_amount_cents"`
	TotalInvoiceAmountCents int64 `json:"total_invoice_amount_cents"`
	// VarianceAmountCents is matched bank amount minus matched invoice
	// amount.
	VarianceAmountCents int64 `json:"variance_amount_cents"`
}

// Stats derives statistics from the run's current matches and unmatched
// lists. It is consistent with concurrent manual edits: the whole snapshot
// is taken under the run lock.
func (r *Run) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		MatchCount:            len(r.matches),
		UnmatchedInvoiceCount: len(r.unmatchedInv),
		UnmatchedBankCount:    len(r.unmatchedBank),
	}

	var matchedBank int64
	for _, m := range r.matches {
		if m.Manual {
			s.ManualMatchCount++
		} else {
			s.AutoMatchCount++
		}
		s.MatchedAmountCents += r.invoices[m.InvoiceIndex].AbsAmountCents()
		matchedBank += r.bank[m.BankIndex].AbsAmountCents()
	}
	s.VarianceAmountCents = matchedBank - s.MatchedAmountCents

	for _, inv := range r.invoices {
		s.TotalInvoiceAmountCents += inv.AbsAmountCents()
	}

	s.InvoiceAccuracy = safeRatio(float64(len(r.matches)), float64(len(r.matches)+len(r.unmatchedInv)))
	s.BankAccuracy = safeRatio(float64(len(r.matches)), float64(len(r.matches)+len(r.unmatchedBank)))

	pruned := float64(r.crossProduct - r.candidateCount)
	s.ReductionPercentage = 100 * safeRatio(pruned, float64(r.crossProduct))

	return s
}

// safeRatio divides, defining x/0 as 0.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
