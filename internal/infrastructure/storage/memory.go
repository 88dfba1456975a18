package storage

import (
	"fmt"
	"sync"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// Memory is an in-memory implementation of ledger.Repository. It backs unit
// tests and demo mode, preserving insertion order with slices and guarding
// state with a single mutex so it is safe under the HTTP server too.
type Memory struct {
	mu         sync.Mutex
	bank       []*ledger.Transaction
	system     []*ledger.Transaction
	matches    []*ledger.MatchRecord
	exceptions []*ledger.Exception
	watchlist  []*ledger.WatchlistItem
	accounts   []*ledger.Account

	nextMatchSeq int
	nextWatchSeq int

	// Hooks for test assertions
	CreateMatchCalled bool
	DeleteMatchCalled bool
	LastCreatedMatch  *ledger.MatchRecord

	// Error injection for testing error paths
	CreateMatchErr         error
	DeleteMatchErr         error
	DeleteExceptionErr     error
	CreateWatchlistItemErr error
}

// Compile-time check that Memory implements the repository contract.
var _ ledger.Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		nextMatchSeq: 1,
		nextWatchSeq: 1,
	}
}

// Close does nothing for the in-memory repository.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) sideSlice(side ledger.Side) *[]*ledger.Transaction {
	if side == ledger.SideBank {
		return &m.bank
	}
	return &m.system
}

// GetTransaction returns a copy of the transaction, or (nil, nil).
func (m *Memory) GetTransaction(side ledger.Side, id string) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getTransactionLocked(side, id), nil
}

func (m *Memory) getTransactionLocked(side ledger.Side, id string) *ledger.Transaction {
	for _, txn := range *m.sideSlice(side) {
		if txn.ID == id {
			copied := *txn
			return &copied
		}
	}
	return nil
}

// FindTransactionByID scans both sides for the given ID.
func (m *Memory) FindTransactionByID(id string) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTransactionLocked(id), nil
}

func (m *Memory) findTransactionLocked(id string) *ledger.Transaction {
	if txn := m.getTransactionLocked(ledger.SideBank, id); txn != nil {
		return txn
	}
	return m.getTransactionLocked(ledger.SideSystem, id)
}

// ListTransactions returns copies of the side's transactions in insertion
// order.
func (m *Memory) ListTransactions(side ledger.Side) ([]*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := *m.sideSlice(side)
	out := make([]*ledger.Transaction, 0, len(src))
	for _, txn := range src {
		copied := *txn
		out = append(out, &copied)
	}
	return out, nil
}

// SaveTransaction inserts or replaces a transaction on its side.
func (m *Memory) SaveTransaction(txn *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *txn
	slice := m.sideSlice(txn.Side)
	for i, existing := range *slice {
		if existing.ID == txn.ID {
			(*slice)[i] = &copied
			return nil
		}
	}
	*slice = append(*slice, &copied)
	return nil
}

// UpdateTransactionStatus sets status and confidence on either side.
func (m *Memory) UpdateTransactionStatus(id string, status ledger.Status, confidence int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, status, confidence)
}

func (m *Memory) updateStatusLocked(id string, status ledger.Status, confidence int) error {
	for _, slice := range []*[]*ledger.Transaction{&m.bank, &m.system} {
		for _, txn := range *slice {
			if txn.ID == id {
				txn.Status = status
				txn.Confidence = confidence
				return nil
			}
		}
	}
	return fmt.Errorf("transaction %s not in store", id)
}

// ListMatches returns copies of all match records in creation order.
func (m *Memory) ListMatches() ([]*ledger.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ledger.MatchRecord, 0, len(m.matches))
	for _, rec := range m.matches {
		copied := *rec
		out = append(out, &copied)
	}
	return out, nil
}

// GetMatch returns a copy of the match record, or (nil, nil).
func (m *Memory) GetMatch(id string) (*ledger.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.matches {
		if rec.ID == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

// FindMatchByTransaction returns the match referencing the transaction on
// either side, or (nil, nil).
func (m *Memory) FindMatchByTransaction(txnID string) (*ledger.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.matches {
		if rec.BankTransactionID == txnID || rec.SystemTransactionID == txnID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

// CreateMatch inserts the record and marks both transactions matched. An
// empty ID is assigned from the M-sequence; a preset ID advances the
// sequence past itself.
func (m *Memory) CreateMatch(rec *ledger.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateMatchCalled = true
	if m.CreateMatchErr != nil {
		return m.CreateMatchErr
	}

	if rec.ID == "" {
		rec.ID = ledger.FormatMatchID(m.nextMatchSeq)
		m.nextMatchSeq++
	} else {
		var seq int
		if _, err := fmt.Sscanf(rec.ID, "M%d", &seq); err == nil && seq >= m.nextMatchSeq {
			m.nextMatchSeq = seq + 1
		}
	}

	if err := m.updateStatusLocked(rec.BankTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}
	if err := m.updateStatusLocked(rec.SystemTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}

	copied := *rec
	m.matches = append(m.matches, &copied)
	m.LastCreatedMatch = &copied
	return nil
}

// DeleteMatch removes the record and resets both transactions to unmatched.
func (m *Memory) DeleteMatch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteMatchCalled = true
	if m.DeleteMatchErr != nil {
		return m.DeleteMatchErr
	}

	for i, rec := range m.matches {
		if rec.ID == id {
			if err := m.updateStatusLocked(rec.BankTransactionID, ledger.StatusUnmatched, 0); err != nil {
				return err
			}
			if err := m.updateStatusLocked(rec.SystemTransactionID, ledger.StatusUnmatched, 0); err != nil {
				return err
			}
			m.matches = append(m.matches[:i], m.matches[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("match %s not in store", id)
}

// ListExceptions returns copies of all open exceptions in insertion order.
func (m *Memory) ListExceptions() ([]*ledger.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ledger.Exception, 0, len(m.exceptions))
	for _, exc := range m.exceptions {
		copied := *exc
		out = append(out, &copied)
	}
	return out, nil
}

// GetException returns a copy of the exception, or (nil, nil).
func (m *Memory) GetException(id string) (*ledger.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, exc := range m.exceptions {
		if exc.ID == id {
			copied := *exc
			return &copied, nil
		}
	}
	return nil, nil
}

// SaveException inserts or replaces an exception.
func (m *Memory) SaveException(exc *ledger.Exception) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *exc
	for i, existing := range m.exceptions {
		if existing.ID == exc.ID {
			m.exceptions[i] = &copied
			return nil
		}
	}
	m.exceptions = append(m.exceptions, &copied)
	return nil
}

// DeleteException removes one exception by ID.
func (m *Memory) DeleteException(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteExceptionErr != nil {
		return m.DeleteExceptionErr
	}

	for i, exc := range m.exceptions {
		if exc.ID == id {
			m.exceptions = append(m.exceptions[:i], m.exceptions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("exception %s not in store", id)
}

// DeleteExceptionsByType removes every exception of the given type and
// returns the removed records in their original order.
func (m *Memory) DeleteExceptionsByType(t ledger.ExceptionType) ([]*ledger.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []*ledger.Exception
	kept := m.exceptions[:0]
	for _, exc := range m.exceptions {
		if exc.Type == t {
			copied := *exc
			removed = append(removed, &copied)
		} else {
			kept = append(kept, exc)
		}
	}
	m.exceptions = kept
	return removed, nil
}

// ListWatchlist returns copies of all monitored items in insertion order.
func (m *Memory) ListWatchlist() ([]*ledger.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ledger.WatchlistItem, 0, len(m.watchlist))
	for _, item := range m.watchlist {
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

// GetWatchlistItem returns a copy of the item, or (nil, nil).
func (m *Memory) GetWatchlistItem(id string) (*ledger.WatchlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.watchlist {
		if item.ID == id {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

// CreateWatchlistItem inserts the item, assigning a W-sequence ID when
// empty.
func (m *Memory) CreateWatchlistItem(item *ledger.WatchlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateWatchlistItemErr != nil {
		return m.CreateWatchlistItemErr
	}

	if item.ID == "" {
		item.ID = ledger.FormatWatchlistID(m.nextWatchSeq)
		m.nextWatchSeq++
	} else {
		var seq int
		if _, err := fmt.Sscanf(item.ID, "W%d", &seq); err == nil && seq >= m.nextWatchSeq {
			m.nextWatchSeq = seq + 1
		}
	}

	copied := *item
	m.watchlist = append(m.watchlist, &copied)
	return nil
}

// DeleteWatchlistItem removes one item by ID.
func (m *Memory) DeleteWatchlistItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, item := range m.watchlist {
		if item.ID == id {
			m.watchlist = append(m.watchlist[:i], m.watchlist[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("watchlist item %s not in store", id)
}

// ListAccounts returns copies of all settlement accounts.
func (m *Memory) ListAccounts() ([]*ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ledger.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		copied := *acct
		out = append(out, &copied)
	}
	return out, nil
}

// SaveAccount inserts or replaces a settlement account.
func (m *Memory) SaveAccount(acct *ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *acct
	for i, existing := range m.accounts {
		if existing.ID == acct.ID {
			m.accounts[i] = &copied
			return nil
		}
	}
	m.accounts = append(m.accounts, &copied)
	return nil
}
