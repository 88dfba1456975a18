package dto

// CreateMatchRequest is the body for POST /api/matches.
type CreateMatchRequest struct {
	BankTransactionID   string `json:"bank_transaction_id"`
	SystemTransactionID string `json:"system_transaction_id"`
	MatchType           string `json:"match_type,omitempty"` // defaults to "manual"
	Confidence          int    `json:"confidence,omitempty"`
	Notes               string `json:"notes,omitempty"`
	MatchedBy           string `json:"matched_by,omitempty"` // X-Actor header wins
}

// ResolveExceptionRequest is the body for POST /api/exceptions/{id}/resolve.
type ResolveExceptionRequest struct {
	Action string `json:"action,omitempty"`
}

// BulkAcceptRequest is the body for POST /api/exceptions/bulk-accept.
type BulkAcceptRequest struct {
	Type string `json:"type"`
}

// AddWatchlistItemRequest is the body for POST /api/watchlist.
type AddWatchlistItemRequest struct {
	Description       string `json:"description"`
	Amount            string `json:"amount,omitempty"` // decimal string
	ExpectedClearDate string `json:"expected_clear_date"`
	Type              string `json:"type"`
}

// UnmatchRequest is the optional body for DELETE /api/matches/{id}.
type UnmatchRequest struct {
	Reason string `json:"reason,omitempty"`
}
