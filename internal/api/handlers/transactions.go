package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// TransactionsHandler handles transaction-related HTTP requests.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service) *TransactionsHandler {
	return &TransactionsHandler{
		Base: NewBase(svc),
	}
}

// List handles GET /api/transactions?side=&search=&unmatched= - returns one
// side's transactions, optionally filtered.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	side := ledger.Side(r.URL.Query().Get("side"))
	if side == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("side query parameter is required"))
		return
	}
	if !side.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("side must be bank or system"))
		return
	}

	var (
		txns []*ledger.Transaction
		err  error
	)
	if ParseBoolParam(r, "unmatched", false) {
		txns, err = h.ledger.ListUnmatched(side)
	} else {
		txns, err = h.ledger.SearchTransactions(side, r.URL.Query().Get("search"))
	}
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(txns)),
		Count:        len(txns),
	}
	for _, txn := range txns {
		response.Transactions = append(response.Transactions, toTransactionResponse(txn))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/transactions/{side}/{id} - returns one transaction.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	side := ledger.Side(chi.URLParam(r, "side"))
	if !side.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("side must be bank or system"))
		return
	}

	txn, err := h.ledger.FindTransaction(side, chi.URLParam(r, "id"))
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toTransactionResponse(txn))
}

// toTransactionResponse converts a ledger transaction to an API response.
func toTransactionResponse(txn *ledger.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:            txn.ID,
		Date:          txn.Date.Format("2006-01-02"),
		Description:   txn.Description,
		Reference:     txn.Reference,
		Amount:        txn.Amount.String(),
		Currency:      txn.Currency,
		Side:          string(txn.Side),
		Status:        string(txn.Status),
		Confidence:    txn.Confidence,
		Category:      txn.Category,
		Partner:       txn.Partner,
		BankAccount:   txn.BankAccount,
		AccountNumber: txn.AccountNumber,
	}
}
