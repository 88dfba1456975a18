package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// MatchesHandler handles match-related HTTP requests.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(svc *ledger.Service) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(svc),
	}
}

// List handles GET /api/matches?search= - returns active match records.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.ledger.SearchMatches(r.URL.Query().Get("search"))
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	response := dto.MatchListResponse{
		Matches: make([]dto.MatchResponse, 0, len(matches)),
		Count:   len(matches),
	}
	for _, rec := range matches {
		response.Matches = append(response.Matches, toMatchResponse(rec))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/matches - pairs a bank transaction with a system
// transaction. Actor identity comes from the X-Actor header or the body.
func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if req.BankTransactionID == "" || req.SystemTransactionID == "" {
		h.WriteError(w, http.StatusBadRequest,
			dto.BadRequestError("bank_transaction_id and system_transaction_id are required"))
		return
	}

	matchType := ledger.MatchType(req.MatchType)
	if req.MatchType == "" {
		matchType = ledger.MatchManual
	}

	rec, err := h.ledger.Match(ledger.MatchInput{
		BankID:     req.BankTransactionID,
		SystemID:   req.SystemTransactionID,
		MatchedBy:  Actor(r, req.MatchedBy),
		MatchType:  matchType,
		Confidence: req.Confidence,
		Notes:      req.Notes,
	})
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, toMatchResponse(rec))
}

// Delete handles DELETE /api/matches/{id} - reverses a match. The optional
// body carries a reason for the audit log.
func (h *MatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")

	var req dto.UnmatchRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !h.DecodeJSON(w, r, &req) {
			return
		}
	}

	if err := h.ledger.Unmatch(matchID, req.Reason); err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toMatchResponse converts a ledger match record to an API response.
func toMatchResponse(rec *ledger.MatchRecord) dto.MatchResponse {
	return dto.MatchResponse{
		ID:                  rec.ID,
		BankTransactionID:   rec.BankTransactionID,
		SystemTransactionID: rec.SystemTransactionID,
		MatchedAt:           rec.MatchedAt.UTC().Format(time.RFC3339),
		MatchedBy:           rec.MatchedBy,
		MatchType:           string(rec.MatchType),
		Confidence:          rec.Confidence,
		Notes:               rec.Notes,
	}
}
