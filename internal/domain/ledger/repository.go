package ledger

// Repository is the storage contract the ledger operates through. Lookups
// return (nil, nil) when the record does not exist; the service layer turns
// that into a NotFoundError.
//
// Compound mutations (CreateMatch, DeleteMatch) must be atomic: the match
// record and both referenced transactions change together or not at all.
type Repository interface {
	TransactionRepository
	MatchRepository
	ExceptionRepository
	WatchlistRepository
	AccountRepository
	Close() error
}

// TransactionRepository stores bank-side and system-side transactions.
// Listing preserves insertion order.
type TransactionRepository interface {
	GetTransaction(side Side, id string) (*Transaction, error)

	// FindTransactionByID scans both sides for the given ID.
	FindTransactionByID(id string) (*Transaction, error)

	ListTransactions(side Side) ([]*Transaction, error)

	// SaveTransaction inserts or replaces a transaction record.
	SaveTransaction(txn *Transaction) error

	// UpdateTransactionStatus sets status and confidence for an existing
	// transaction.
	UpdateTransactionStatus(id string, status Status, confidence int) error
}

// MatchRepository stores confirmed match records.
type MatchRepository interface {
	ListMatches() ([]*MatchRecord, error)
	GetMatch(id string) (*MatchRecord, error)

	// FindMatchByTransaction returns the active match referencing the given
	// transaction ID on either side, or (nil, nil).
	FindMatchByTransaction(txnID string) (*MatchRecord, error)

	// CreateMatch inserts the record and marks both referenced transactions
	// matched with the record's confidence, in one atomic step. When rec.ID
	// is empty the repository assigns the next ID in the monotonic M-sequence;
	// a preset ID (seed data) advances the sequence past it.
	CreateMatch(rec *MatchRecord) error

	// DeleteMatch removes the record and resets both referenced transactions
	// to unmatched with confidence cleared, in one atomic step.
	DeleteMatch(id string) error
}

// ExceptionRepository stores open exceptions. Listing preserves insertion
// order.
type ExceptionRepository interface {
	ListExceptions() ([]*Exception, error)
	GetException(id string) (*Exception, error)
	SaveException(exc *Exception) error
	DeleteException(id string) error

	// DeleteExceptionsByType removes every exception of the given type and
	// returns the removed records in their original order.
	DeleteExceptionsByType(t ExceptionType) ([]*Exception, error)
}

// WatchlistRepository stores items under time-boxed monitoring.
type WatchlistRepository interface {
	ListWatchlist() ([]*WatchlistItem, error)
	GetWatchlistItem(id string) (*WatchlistItem, error)

	// CreateWatchlistItem inserts the item, assigning the next W-sequence ID
	// when item.ID is empty.
	CreateWatchlistItem(item *WatchlistItem) error

	DeleteWatchlistItem(id string) error
}

// AccountRepository stores the settlement accounts shown on the dashboard.
type AccountRepository interface {
	ListAccounts() ([]*Account, error)
	SaveAccount(acct *Account) error
}
