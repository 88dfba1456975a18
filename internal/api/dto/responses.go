package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// TransactionResponse represents a transaction in API responses.
// Amount is a decimal string to avoid float drift on the wire.
type TransactionResponse struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	Reference     string `json:"reference"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Side          string `json:"side"`
	Status        string `json:"status"`
	Confidence    int    `json:"confidence,omitempty"`
	Category      string `json:"category,omitempty"`
	Partner       string `json:"partner,omitempty"`
	BankAccount   string `json:"bank_account,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
}

// MatchResponse represents a confirmed match in API responses.
type MatchResponse struct {
	ID                  string `json:"id"`
	BankTransactionID   string `json:"bank_transaction_id"`
	SystemTransactionID string `json:"system_transaction_id"`
	MatchedAt           string `json:"matched_at"`
	MatchedBy           string `json:"matched_by"`
	MatchType           string `json:"match_type"`
	Confidence          int    `json:"confidence"`
	Notes               string `json:"notes,omitempty"`
}

// MatchListResponse is returned when listing matches.
type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
	Count   int             `json:"count"`
}

// ExceptionResponse represents an open exception in API responses.
type ExceptionResponse struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Severity            string `json:"severity"`
	BankTransactionID   string `json:"bank_transaction_id,omitempty"`
	SystemTransactionID string `json:"system_transaction_id,omitempty"`
	SuggestedAction     string `json:"suggested_action,omitempty"`
	Description         string `json:"description"`
}

// ExceptionListResponse is returned when listing exceptions, with per-type
// counts for the filter tabs.
type ExceptionListResponse struct {
	Exceptions []ExceptionResponse `json:"exceptions"`
	Counts     map[string]int      `json:"counts"`
	Total      int                 `json:"total"`
}

// BulkAcceptResponse reports what a bulk-accept did.
type BulkAcceptResponse struct {
	Resolved    int                     `json:"resolved"`
	Watchlisted []WatchlistItemResponse `json:"watchlisted,omitempty"`
}

// WatchlistItemResponse represents a monitored settlement in API responses.
type WatchlistItemResponse struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	AddedDate         string `json:"added_date"`
	ExpectedClearDate string `json:"expected_clear_date"`
	Type              string `json:"type"`
	DaysRemaining     int    `json:"days_remaining"`
}

// WatchlistResponse is returned when listing the watchlist.
type WatchlistResponse struct {
	Items []WatchlistItemResponse `json:"items"`
	Count int                     `json:"count"`
}

// AccountResponse represents a settlement account on the dashboard.
type AccountResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Balance        string `json:"balance"`
	Status         string `json:"status"`
	LastReconciled string `json:"last_reconciled"`
}

// StatsResponse is the dashboard snapshot.
type StatsResponse struct {
	TotalTransactions int               `json:"total_transactions"`
	Matched           int               `json:"matched"`
	Unmatched         int               `json:"unmatched"`
	Pending           int               `json:"pending"`
	Exceptions        int               `json:"exceptions"`
	OpenExceptions    int               `json:"open_exceptions"`
	WatchlistCount    int               `json:"watchlist_count"`
	MatchRate         int               `json:"match_rate"`
	Accounts          []AccountResponse `json:"accounts"`
}
