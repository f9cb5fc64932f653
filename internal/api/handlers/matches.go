package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconly/reconcile-backend/internal/api/dto"
	"github.com/reconly/reconcile-backend/internal/domain/recon"
	"github.com/reconly/reconcile-backend/internal/domain/record"
	"github.com/reconly/reconcile-backend/internal/infrastructure/storage"
)

// MatchesHandler handles manual match edits on a reconciliation run.
// Manual edits mutate the in-memory run and are written through to storage;
// runs that predate this process can be reviewed but not edited.
type MatchesHandler struct {
	*Base
	cache *recon.RunCache
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository, cache *recon.RunCache) *MatchesHandler {
	return &MatchesHandler{
		Base:  NewBase(repo),
		cache: cache,
	}
}

// Create handles POST /api/reconciliations/{id}/matches - confirms a manual
// match between an unmatched invoice and an unmatched bank record.
func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run := h.cache.Get(id)
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("active reconciliation run"))
		return
	}

	var req dto.ManualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return
	}

	m, err := run.CreateManualMatch(req.InvoiceIndex, req.BankIndex)
	if errors.Is(err, recon.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("record"))
		return
	}
	if errors.Is(err, recon.ErrDuplicateMatch) {
		h.WriteError(w, http.StatusConflict, dto.ConflictError("record is already matched"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	inv := run.Invoice(m.InvoiceIndex)
	bank := run.Bank(m.BankIndex)
	rec := storage.MatchRecord{
		MatchID:            m.ID,
		RunID:              m.RunID,
		InvoiceRef:         m.InvoiceIndex,
		BankRef:            m.BankIndex,
		InvoiceDescription: inv.Description,
		BankDescription:    bank.Description,
		InvoiceAmountCents: inv.AmountCents,
		BankAmountCents:    bank.AmountCents,
		Score:              m.Score,
		IsManual:           true,
		CreatedAt:          m.CreatedAt,
	}
	if err := h.repo.SaveMatch(&rec); err != nil {
		// Roll the in-memory edit back so state stays consistent.
		_ = run.DeleteMatch(m.ID)
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, dto.MatchResponse{
		MatchID:            m.ID,
		InvoiceIndex:       m.InvoiceIndex,
		BankIndex:          m.BankIndex,
		InvoiceDescription: inv.Description,
		BankDescription:    bank.Description,
		InvoiceAmount:      record.FormatCents(inv.AmountCents),
		BankAmount:         record.FormatCents(bank.AmountCents),
		Score:              m.Score,
		Manual:             true,
		CreatedAt:          m.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Delete handles DELETE /api/reconciliations/{id}/matches/{matchID} -
// removes a match and returns both records to the unmatched pools.
func (h *MatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	matchID := chi.URLParam(r, "matchID")

	run := h.cache.Get(id)
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("active reconciliation run"))
		return
	}

	if _, ok := run.GetMatch(matchID); !ok {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("match"))
		return
	}

	// Storage goes first: if the row delete fails the in-memory run is
	// untouched and the request can simply be retried.
	if err := h.repo.DeleteMatch(matchID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// A concurrent delete of the same match can only make this a no-op.
	_ = run.DeleteMatch(matchID)

	w.WriteHeader(http.StatusNoContent)
}
