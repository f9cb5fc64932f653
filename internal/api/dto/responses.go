package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// MatchResponse represents one matched invoice/bank pair.
type MatchResponse struct {
	MatchID            string  `json:"match_id"`
	InvoiceIndex       int     `json:"invoice_index"`
	BankIndex          int     `json:"bank_index"`
	InvoiceDescription string  `json:"invoice_description"`
	BankDescription    string  `json:"bank_description"`
	InvoiceAmount      string  `json:"invoice_amount"`
	BankAmount         string  `json:"bank_amount"`
	Score              float64 `json:"score"`
	Manual             bool    `json:"manual"`
	CreatedAt          string  `json:"created_at"`
}

// RunResponse represents a reconciliation run in API responses.
type RunResponse struct {
	RunID             string          `json:"run_id"`
	Threshold         float64         `json:"threshold"`
	TotalInvoices     int             `json:"total_invoices"`
	TotalBank         int             `json:"total_bank"`
	Matches           []MatchResponse `json:"matches"`
	UnmatchedInvoices []int           `json:"unmatched_invoices"`
	UnmatchedBank     []int           `json:"unmatched_bank"`
	CreatedAt         string          `json:"created_at"`
}

// RunSummaryResponse is the compact form used when listing runs.
type RunSummaryResponse struct {
	RunID         string  `json:"run_id"`
	Threshold     float64 `json:"threshold"`
	TotalInvoices int     `json:"total_invoices"`
	TotalBank     int     `json:"total_bank"`
	MatchCount    int     `json:"match_count"`
	CreatedAt     string  `json:"created_at"`
}

// RunListResponse is returned when listing reconciliation runs.
type RunListResponse struct {
	Runs  []RunSummaryResponse `json:"runs"`
	Count int                  `json:"count"`
}

// StatsResponse summarises a run's outcome.
type StatsResponse struct {
	RunID                 string  `json:"run_id"`
	MatchCount            int     `json:"match_count"`
	ManualMatchCount      int     `json:"manual_match_count"`
	AutoMatchCount        int     `json:"auto_match_count"`
	UnmatchedInvoiceCount int     `json:"unmatched_invoice_count"`
	UnmatchedBankCount    int     `json:"unmatched_bank_count"`
	InvoiceAccuracy       float64 `json:"invoice_accuracy"`
	BankAccuracy          float64 `json:"bank_accuracy"`
	ReductionPercentage   float64 `json:"reduction_percentage"`
	MatchedAmount         string  `json:"matched_amount"`
	TotalInvoiceAmount    string  `json:"total_invoice_amount"`
	VarianceAmount        string  `json:"variance_amount"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
