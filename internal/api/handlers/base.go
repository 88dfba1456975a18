package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// ActorHeader carries the acting user's identity for mutations.
const ActorHeader = "X-Actor"

// Base provides shared functionality for all handlers.
type Base struct {
	ledger *ledger.Service
}

// NewBase creates a new base handler over the ledger service.
func NewBase(svc *ledger.Service) *Base {
	return &Base{ledger: svc}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteLedgerError maps a ledger error onto the HTTP status contract:
// unknown ID 404, failed match precondition 409, invariant violation 422,
// anything else 500.
func (b *Base) WriteLedgerError(w http.ResponseWriter, err error) {
	var notFound *ledger.NotFoundError
	var invalidPair *ledger.InvalidPairError
	var invariant *ledger.InvariantViolationError

	switch {
	case errors.As(err, &notFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError(notFound.Error()))
	case errors.As(err, &invalidPair):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(invalidPair.Error()))
	case errors.As(err, &invariant):
		b.WriteError(w, http.StatusUnprocessableEntity, dto.UnprocessableError(invariant.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// DecodeJSON decodes the request body into dst, reporting a 400 on failure.
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return false
	}
	return true
}

// Actor returns the acting user's identity from the X-Actor header, falling
// back to the given body value.
func Actor(r *http.Request, bodyValue string) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return bodyValue
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
