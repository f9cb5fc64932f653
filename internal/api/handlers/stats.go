package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reconly/reconcile-backend/internal/api/dto"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/infrastructure/storage"
)

// StatsHandler serves summary statistics for a reconciliation run.
type StatsHandler struct {
	*Base
	cache *recon.RunCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository, cache *recon.RunCache) *StatsHandler {
	return &StatsHandler{
		Base:  NewBase(repo),
		cache: cache,
	}
}

// Get handles GET /api/reconciliations/{id}/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if run := h.cache.Get(id); run != nil {
		h.writeLiveStats(w, run)
		return
	}

	// Stored runs still carry enough counters for a summary.
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

	h.writeStoredStats(w, rec, matches)
}

func (h *StatsHandler) writeLiveStats(w http.ResponseWriter, run *recon.Run) {
	stats := run.Stats()
	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		RunID:                 run.ID,
		MatchCount:            stats.MatchCount,
		ManualMatchCount:      stats.ManualMatchCount,
		AutoMatchCount:        stats.AutoMatchCount,
		UnmatchedInvoiceCount: stats.UnmatchedInvoiceCount,
		UnmatchedBankCount:    stats.UnmatchedBankCount,
		InvoiceAccuracy:       stats.InvoiceAccuracy,
		BankAccuracy:          stats.BankAccuracy,
		ReductionPercentage:   stats.ReductionPercentage,
		MatchedAmount:         record.FormatCents(stats.MatchedAmountCents),
		TotalInvoiceAmount:    record.FormatCents(stats.TotalInvoiceAmountCents),
		VarianceAmount:        record.FormatCents(stats.VarianceAmountCents),
	})
}

// writeStoredStats derives the same summary from persisted rows. Counters on
// the run row already reflect manual edits.
func (h *StatsHandler) writeStoredStats(w http.ResponseWriter, rec *storage.RunRecord, matches []storage.MatchRecord) {
	resp := dto.StatsResponse{
		RunID:                 rec.ID,
		MatchCount:            rec.MatchCount,
		UnmatchedInvoiceCount: rec.UnmatchedInvoices,
		UnmatchedBankCount:    rec.UnmatchedBank,
	}

	var matchedInv, matchedBank int64
	for _, m := range matches {
		if m.IsManual {
			resp.ManualMatchCount++
		} else {
			resp.AutoMatchCount++
		}
		matchedInv += abs64(m.InvoiceAmountCents)
		matchedBank += abs64(m.BankAmountCents)
	}

	if rec.TotalInvoices > 0 {
		resp.InvoiceAccuracy = float64(rec.MatchCount) / float64(rec.TotalInvoices)
	}
	if rec.TotalBank > 0 {
		resp.BankAccuracy = float64(rec.MatchCount) / float64(rec.TotalBank)
	}
	if rec.CrossProductSize > 0 {
		resp.ReductionPercentage = 100 * float64(rec.CrossProductSize-rec.CandidateCount) / float64(rec.CrossProductSize)
	}

	resp.MatchedAmount = record.FormatCents(matchedInv)
	resp.TotalInvoiceAmount = record.FormatCents(rec.TotalInvoiceCents)
	resp.VarianceAmount = record.FormatCents(matchedBank - matchedInv)

	h.WriteJSON(w, http.StatusOK, resp)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
