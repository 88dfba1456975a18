// Package ledger holds the reconciliation ledger: bank and system
// transactions, confirmed matches, open exceptions, and the watchlist of
// settlements under passive monitoring.
//
// The ledger owns the data rules only. Persistence comes from an injected
// Repository, and the HTTP layer is a thin renderer over ledger snapshots.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which feed a transaction came from.
type Side string

const (
	SideBank   Side = "bank"
	SideSystem Side = "system"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBank || s == SideSystem
}

// Status is the reconciliation state of a transaction. It is a maintained
// field, updated in the same repository transaction as the match record it
// reflects, never inferred from list membership.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusUnmatched Status = "unmatched"
	StatusPending   Status = "pending"
	StatusException Status = "exception"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusMatched, StatusUnmatched, StatusPending, StatusException:
		return true
	}
	return false
}

// MatchType records whether a match was confirmed by a user or by an
// upstream auto-matcher.
type MatchType string

const (
	MatchAuto   MatchType = "auto"
	MatchManual MatchType = "manual"
)

// ExceptionType classifies a detected discrepancy.
type ExceptionType string

const (
	ExceptionTiming         ExceptionType = "timing"
	ExceptionDuplicate      ExceptionType = "duplicate"
	ExceptionAmountMismatch ExceptionType = "amount_mismatch"
	ExceptionUnmatched      ExceptionType = "unmatched"
)

// Valid reports whether t is a known exception type.
func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionTiming, ExceptionDuplicate, ExceptionAmountMismatch, ExceptionUnmatched:
		return true
	}
	return false
}

// Severity ranks how urgently an exception needs review.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// WatchType classifies why an item is on the watchlist.
type WatchType string

const (
	WatchTiming  WatchType = "timing"
	WatchPartial WatchType = "partial"
	WatchPending WatchType = "pending"
)

// AccountState is the reconciliation state of a settlement account.
type AccountState string

const (
	AccountReconciled AccountState = "reconciled"
	AccountPending    AccountState = "pending"
	AccountCritical   AccountState = "critical"
)

// Transaction is one record from either the bank feed or the internal
// system feed. Identity is ID, unique within a side. Transactions are never
// deleted; match and exception operations only flip Status and Confidence.
type Transaction struct {
	ID            string
	Date          time.Time
	Description   string
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	Side          Side
	Status        Status
	Confidence    int // 0-100 match confidence, 0 when not matched
	Category      string
	Partner       string
	BankAccount   string
	AccountNumber string
}

// MatchesQuery reports whether the transaction matches a case-insensitive
// substring search over its text fields.
func (t *Transaction) MatchesQuery(query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{t.Description, t.Reference, t.Partner, t.BankAccount, t.AccountNumber} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// MatchRecord pairs one bank transaction with one system transaction. Each
// transaction ID appears in at most one active record.
type MatchRecord struct {
	ID                  string
	BankTransactionID   string
	SystemTransactionID string
	MatchedAt           time.Time
	MatchedBy           string // opaque user identifier from the session layer
	MatchType           MatchType
	Confidence          int
	Notes               string
}

// Exception is a detected discrepancy awaiting review. At least one
// transaction reference is set, except for aggregate notices (timing or
// duplicate summaries) which reference none.
type Exception struct {
	ID                  string
	Type                ExceptionType
	Severity            Severity
	BankTransactionID   string
	SystemTransactionID string
	SuggestedAction     string
	Description         string
}

// WatchlistItem is a settlement accepted for time-boxed monitoring instead
// of immediate resolution.
type WatchlistItem struct {
	ID                string
	Description       string
	Amount            decimal.Decimal
	AddedDate         time.Time
	ExpectedClearDate time.Time
	Type              WatchType
}

// DaysRemaining returns whole calendar days until the expected clear date,
// rounded up and floored at zero. Weekends are not skipped.
func (w *WatchlistItem) DaysRemaining(now time.Time) int {
	remaining := w.ExpectedClearDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining.Hours() / 24)
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Account is a settlement account shown on the dashboard.
type Account struct {
	ID             string
	Name           string
	Balance        decimal.Decimal
	Status         AccountState
	LastReconciled time.Time
}

// FormatMatchID renders a match sequence number as a record ID (M001, ...).
func FormatMatchID(seq int) string {
	return fmt.Sprintf("M%03d", seq)
}

// FormatWatchlistID renders a watchlist sequence number as a record ID.
func FormatWatchlistID(seq int) string {
	return fmt.Sprintf("W%03d", seq)
}
