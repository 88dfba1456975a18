package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// WatchlistHandler handles watchlist-related HTTP requests.
type WatchlistHandler struct {
	*Base
	now func() time.Time
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(svc *ledger.Service) *WatchlistHandler {
	return &WatchlistHandler{
		Base: NewBase(svc),
		now:  time.Now,
	}
}

// List handles GET /api/watchlist - returns monitored items with days
// remaining computed against the current time.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListWatchlist()
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	now := h.now()
	response := dto.WatchlistResponse{
		Items: make([]dto.WatchlistItemResponse, 0, len(items)),
		Count: len(items),
	}
	for _, item := range items {
		resp := toWatchlistItemResponse(item)
		resp.DaysRemaining = item.DaysRemaining(now)
		response.Items = append(response.Items, resp)
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/watchlist - places a settlement under monitoring.
func (h *WatchlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.AddWatchlistItemRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("amount must be a decimal string"))
			return
		}
		amount = parsed
	}

	var clearDate time.Time
	if req.ExpectedClearDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpectedClearDate)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expected_clear_date must be YYYY-MM-DD"))
			return
		}
		clearDate = parsed
	}

	item, err := h.ledger.AddToWatchlist(&ledger.WatchlistItem{
		Description:       req.Description,
		Amount:            amount,
		ExpectedClearDate: clearDate,
		Type:              ledger.WatchType(req.Type),
	})
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	resp := toWatchlistItemResponse(item)
	resp.DaysRemaining = item.DaysRemaining(h.now())
	h.WriteJSON(w, http.StatusCreated, resp)
}

// Clear handles POST /api/watchlist/{id}/clear - removes an item whose
// matching entry has appeared.
func (h *WatchlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.MarkWatchlistCleared(chi.URLParam(r, "id")); err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toWatchlistItemResponse converts a ledger watchlist item to an API
// response. DaysRemaining is left for the caller to stamp.
func toWatchlistItemResponse(item *ledger.WatchlistItem) dto.WatchlistItemResponse {
	return dto.WatchlistItemResponse{
		ID:                item.ID,
		Description:       item.Description,
		Amount:            item.Amount.String(),
		AddedDate:         item.AddedDate.Format("2006-01-02"),
		ExpectedClearDate: item.ExpectedClearDate.Format("2006-01-02"),
		Type:              string(item.Type),
	}
}
