package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconly/reconcile-backend/internal/api/dto"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/infrastructure/storage"
)

// ReconciliationsHandler handles reconciliation run HTTP requests.
type ReconciliationsHandler struct {
	*Base
	engine *recon.Engine
	cache  *recon.RunCache
}

// NewReconciliationsHandler creates a new reconciliations handler.
func NewReconciliationsHandler(repo storage.Repository, engine *recon.Engine, cache *recon.RunCache) *ReconciliationsHandler {
	return &ReconciliationsHandler{
		Base:   NewBase(repo),
		engine: engine,
		cache:  cache,
	}
}

// Create handles POST /api/reconciliations - runs the matching engine over
// the submitted invoices and bank records.
func (h *ReconciliationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return
	}

	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	invoices, err := dto.ToRecords(req.Invoices, record.SourceInvoice)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("invoices: "+err.Error()))
		return
	}
	bank, err := dto.ToRecords(req.BankRecords, record.SourceBank)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("bank_records: "+err.Error()))
		return
	}

	threshold := recon.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	run := h.engine.Run(invoices, bank, threshold)
	h.cache.Put(run)

	if err := h.persistRun(run); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, toRunResponse(run))
}

// List handles GET /api/reconciliations - returns recent runs, newest first.
func (h *ReconciliationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunSummaryResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, dto.RunSummaryResponse{
			RunID:         run.ID,
			Threshold:     run.Threshold,
			TotalInvoices: run.TotalInvoices,
			TotalBank:     run.TotalBank,
			MatchCount:    run.MatchCount,
			CreatedAt:     run.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/reconciliations/{id} - returns a single run with its
// full match set.
func (h *ReconciliationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if run := h.cache.Get(id); run != nil {
		h.WriteJSON(w, http.StatusOK, toRunResponse(run))
		return
	}

	// Fall back to storage for runs that predate this process.
	rec, err := h.repo.GetRun(id)
	if err == storage.ErrNotFound {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("reconciliation run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	matches, err := h.repo.GetMatches(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toStoredRunResponse(rec, matches))
}

// persistRun writes the run row and its automatic matches through to storage.
func (h *ReconciliationsHandler) persistRun(run *recon.Run) error {
	matches := run.Matches()
	records := make([]storage.MatchRecord, 0, len(matches))
	for _, m := range matches {
		records = append(records, toMatchRecord(run, m))
	}

	stats := run.Stats()
	return h.repo.SaveRun(&storage.RunRecord{
		ID:                run.ID,
		Threshold:         run.Threshold,
		TotalInvoices:     run.TotalInvoices(),
		TotalBank:         run.TotalBank(),
		MatchCount:        len(matches),
		UnmatchedInvoices: run.TotalInvoices() - len(matches),
		UnmatchedBank:     run.TotalBank() - len(matches),
		CandidateCount:    run.CandidateCount(),
		CrossProductSize:  run.CrossProductSize(),
		TotalInvoiceCents: stats.TotalInvoiceAmountCents,
		CreatedAt:         run.CreatedAt,
	}, records)
}

// toMatchRecord denormalizes a match for storage.
func toMatchRecord(run *recon.Run, m recon.Match) storage.MatchRecord {
	inv := run.Invoice(m.InvoiceIndex)
	bank := run.Bank(m.BankIndex)
	return storage.MatchRecord{
		MatchID:            m.ID,
		RunID:              m.RunID,
		InvoiceRef:         m.InvoiceIndex,
		BankRef:            m.BankIndex,
		InvoiceDescription: inv.Description,
		BankDescription:    bank.Description,
		InvoiceAmountCents: inv.AmountCents,
		BankAmountCents:    bank.AmountCents,
		Score:              m.Score,
		IsManual:           m.Manual,
		CreatedAt:          m.CreatedAt,
	}
}

// toRunResponse converts a live run to an API response. The run state is
// read through one Snapshot call so a concurrent manual edit cannot leave
// the match set and the unmatched lists disagreeing.
func toRunResponse(run *recon.Run) dto.RunResponse {
	snap := run.Snapshot()
	out := dto.RunResponse{
		RunID:             run.ID,
		Threshold:         run.Threshold,
		TotalInvoices:     run.TotalInvoices(),
		TotalBank:         run.TotalBank(),
		Matches:           make([]dto.MatchResponse, 0, len(snap.Matches)),
		UnmatchedInvoices: snap.UnmatchedInvoices,
		UnmatchedBank:     snap.UnmatchedBank,
		CreatedAt:         run.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, m := range snap.Matches {
		inv := run.Invoice(m.InvoiceIndex)
		bank := run.Bank(m.BankIndex)
		out.Matches = append(out.Matches, dto.MatchResponse{
			MatchID:            m.ID,
			InvoiceIndex:       m.InvoiceIndex,
			BankIndex:          m.BankIndex,
			InvoiceDescription: inv.Description,
			BankDescription:    bank.Description,
			InvoiceAmount:      record.FormatCents(inv.AmountCents),
			BankAmount:         record.FormatCents(bank.AmountCents),
			Score:              m.Score,
			Manual:             m.Manual,
			CreatedAt:          m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// toStoredRunResponse rebuilds a run view from its stored rows. The input
// records themselves are not persisted, so unmatched lists are derived from
// the totals and the matched refs.
func toStoredRunResponse(rec *storage.RunRecord, matches []storage.MatchRecord) dto.RunResponse {
	out := dto.RunResponse{
		RunID:             rec.ID,
		Threshold:         rec.Threshold,
		TotalInvoices:     rec.TotalInvoices,
		TotalBank:         rec.TotalBank,
		Matches:           make([]dto.MatchResponse, 0, len(matches)),
		UnmatchedInvoices: []int{},
		UnmatchedBank:     []int{},
		CreatedAt:         rec.CreatedAt.UTC().Format(time.RFC3339),
	}

	matchedInv := make(map[int]bool, len(matches))
	matchedBank := make(map[int]bool, len(matches))
	for _, m := range matches {
		matchedInv[m.InvoiceRef] = true
		matchedBank[m.BankRef] = true
		out.Matches = append(out.Matches, dto.MatchResponse{
			MatchID:            m.MatchID,
			InvoiceIndex:       m.InvoiceRef,
			BankIndex:          m.BankRef,
			InvoiceDescription: m.InvoiceDescription,
			BankDescription:    m.BankDescription,
			InvoiceAmount:      record.FormatCents(m.InvoiceAmountCents),
			BankAmount:         record.FormatCents(m.BankAmountCents),
			Score:              m.Score,
			Manual:             m.IsManual,
			CreatedAt:          m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	for i := 0; i < rec.TotalInvoices; i++ {
		if !matchedInv[i] {
			out.UnmatchedInvoices = append(out.UnmatchedInvoices, i)
		}
	}
	for j := 0; j < rec.TotalBank; j++ {
		if !matchedBank[j] {
			out.UnmatchedBank = append(out.UnmatchedBank, j)
		}
	}
	return out
}
