package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// ExceptionsHandler handles exception-related HTTP requests.
type ExceptionsHandler struct {
	*Base
}

// NewExceptionsHandler creates a new exceptions handler.
func NewExceptionsHandler(svc *ledger.Service) *ExceptionsHandler {
	return &ExceptionsHandler{
		Base: NewBase(svc),
	}
}

// List handles GET /api/exceptions?type= - returns open exceptions with
// per-type counts for the filter tabs.
func (h *ExceptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	exceptions, err := h.ledger.FilterExceptions(r.URL.Query().Get("type"))
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	counts, total, err := h.ledger.CountExceptionsByType()
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	response := dto.ExceptionListResponse{
		Exceptions: make([]dto.ExceptionResponse, 0, len(exceptions)),
		Counts:     make(map[string]int, len(counts)),
		Total:      total,
	}
	for _, exc := range exceptions {
		response.Exceptions = append(response.Exceptions, toExceptionResponse(exc))
	}
	for t, n := range counts {
		response.Counts[string(t)] = n
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Resolve handles POST /api/exceptions/{id}/resolve - removes an exception
// after its suggested action was accepted.
func (h *ExceptionsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveExceptionRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !h.DecodeJSON(w, r, &req) {
			return
		}
	}

	if err := h.ledger.ResolveException(chi.URLParam(r, "id"), req.Action); err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dismiss handles POST /api/exceptions/{id}/dismiss - removes an exception
// without action.
func (h *ExceptionsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DismissException(chi.URLParam(r, "id")); err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkAccept handles POST /api/exceptions/bulk-accept - removes every
// exception of the given type. Timing exceptions additionally land on the
// watchlist for 3-day monitoring.
func (h *ExceptionsHandler) BulkAccept(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkAcceptRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("type is required"))
		return
	}

	result, err := h.ledger.BulkAccept(ledger.ExceptionType(req.Type))
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	response := dto.BulkAcceptResponse{
		Resolved:    result.Resolved,
		Watchlisted: make([]dto.WatchlistItemResponse, 0, len(result.Watchlisted)),
	}
	for _, item := range result.Watchlisted {
		response.Watchlisted = append(response.Watchlisted, toWatchlistItemResponse(item))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toExceptionResponse converts a ledger exception to an API response.
func toExceptionResponse(exc *ledger.Exception) dto.ExceptionResponse {
	return dto.ExceptionResponse{
		ID:                  exc.ID,
		Type:                string(exc.Type),
		Severity:            string(exc.Severity),
		BankTransactionID:   exc.BankTransactionID,
		SystemTransactionID: exc.SystemTransactionID,
		SuggestedAction:     exc.SuggestedAction,
		Description:         exc.Description,
	}
}
