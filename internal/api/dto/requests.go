package dto

import (
	"fmt"
	"time"

	"github.com/reconly/reconcile-backend/internal/domain/record"
)

// RecordRequest is one invoice or bank transaction in a reconciliation request.
// Amounts are decimal strings ("1500.00") to avoid float round-trip loss.
type RecordRequest struct {
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Date            string `json:"date,omitempty"` // YYYY-MM-DD
	VendorName      string `json:"vendor_name,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	InvoiceNumber   string `json:"invoice_number,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// ReconcileRequest starts a reconciliation run.
type ReconcileRequest struct {
	Invoices    []RecordRequest `json:"invoices"`
	BankRecords []RecordRequest `json:"bank_records"`
	Threshold   *float64        `json:"threshold,omitempty"`
}

// ManualMatchRequest pairs an unmatched invoice with an unmatched bank record.
type ManualMatchRequest struct {
	InvoiceIndex int `json:"invoice_index"`
	BankIndex    int `json:"bank_index"`
}

// Validate checks the request for structural problems before any matching
// work. Empty record lists are valid: the run simply produces no matches and
// leaves everything unmatched.
func (r *ReconcileRequest) Validate() error {
	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 1) {
		return fmt.Errorf("threshold must be between 0 and 1")
	}
	return nil
}

// ToRecord converts a request record into a domain record.
func (r RecordRequest) ToRecord(source record.Source) (record.Record, error) {
	cents, err := record.ParseAmount(r.Amount)
	if err != nil {
		return record.Record{}, fmt.Errorf("amount %q: %w", r.Amount, err)
	}

	rec := record.Record{
		Source:          source,
		Description:     r.Description,
		AmountCents:     cents,
		VendorName:      r.VendorName,
		ReferenceNumber: r.ReferenceNumber,
		InvoiceNumber:   r.InvoiceNumber,
		Currency:        r.Currency,
	}

	if r.Date != "" {
		t, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return record.Record{}, fmt.Errorf("date %q: expected YYYY-MM-DD", r.Date)
		}
		rec.Date = &t
	}

	return rec, nil
}

// ToRecords converts a slice of request records, reporting the index of the
// first bad entry.
func ToRecords(reqs []RecordRequest, source record.Source) ([]record.Record, error) {
	records := make([]record.Record, 0, len(reqs))
	for i := range reqs {
		rec, err := reqs[i].ToRecord(source)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
