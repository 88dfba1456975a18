package ledger

import "fmt"

// NotFoundError reports an operation that referenced an unknown record ID.
type NotFoundError struct {
	Kind string // "transaction", "match", "exception", "watchlist item"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidPairError reports a match attempt that failed its preconditions:
// two transactions on the same side, or a transaction already referenced by
// an active match record.
type InvalidPairError struct {
	BankID   string
	SystemID string
	Reason   string
}

func (e *InvalidPairError) Error() string {
	return fmt.Sprintf("cannot match %s with %s: %s", e.BankID, e.SystemID, e.Reason)
}

// InvariantViolationError is the catch-all for an operation that would
// corrupt referential integrity. The store is left unchanged.
type InvariantViolationError struct {
	Message string
}

func (e *InvariantViolationError) Error() string {
	return e.Message
}
