package storage

import "time"

// RunRecord is the durable row for one reconciliation run. Counters are
// kept in sync with manual edits by the API layer's write-through.
type RunRecord struct {
	ID                 string
	Threshold          float64
	TotalInvoices      int
	TotalBank          int
	MatchCount         int
	UnmatchedInvoices  int
	UnmatchedBank      int
	CandidateCount     int
	CrossProductSize   int
	TotalInvoiceCents  int64
	CreatedAt          time.Time
}

// MatchRecord is the durable row for one confirmed match, automatic or
// manual. Refs are positions in the run's input lists; the descriptive
// columns are denormalized so a run can be reviewed without the source
// documents.
type MatchRecord struct {
	MatchID            string
	RunID              string
	InvoiceRef         int
	BankRef            int
	InvoiceDescription string
	BankDescription    string
	InvoiceAmountCents int64
	BankAmountCents    int64
	Score              float64
	IsManual           bool
	CreatedAt          time.Time
}
