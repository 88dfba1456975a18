package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// SQLite provides the file-backed implementation of ledger.Repository.
// Compound mutations run inside SQL transactions so a failed precondition
// never leaves a half-applied match.
type SQLite struct {
	db *sql.DB
}

// Compile-time check that SQLite implements the repository contract.
var _ ledger.Repository = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at dbPath and runs pending
// migrations. Use ":memory:" for a throwaway database in tests.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps writes serialized and makes ":memory:"
	// databases behave: every pooled connection would otherwise open its
	// own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLite{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, side, date, description, reference, amount, currency,
	status, confidence, category, partner, bank_account, account_number`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	txn := &ledger.Transaction{}
	var amount string
	err := row.Scan(
		&txn.ID,
		&txn.Side,
		&txn.Date,
		&txn.Description,
		&txn.Reference,
		&amount,
		&txn.Currency,
		&txn.Status,
		&txn.Confidence,
		&txn.Category,
		&txn.Partner,
		&txn.BankAccount,
		&txn.AccountNumber,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount for transaction %s: %w", txn.ID, err)
	}

	return txn, nil
}

// GetTransaction retrieves one transaction by side and ID.
func (s *SQLite) GetTransaction(side ledger.Side, id string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE side = ? AND id = ?`

	txn, err := scanTransaction(s.db.QueryRow(query, side, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return txn, err
}

// FindTransactionByID scans both sides for the given ID.
func (s *SQLite) FindTransactionByID(id string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? ORDER BY seq LIMIT 1`

	txn, err := scanTransaction(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return txn, err
}

// ListTransactions returns the side's transactions in insertion order.
func (s *SQLite) ListTransactions(side ledger.Side) ([]*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE side = ? ORDER BY seq`

	rows, err := s.db.Query(query, side)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ledger.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}

	return out, rows.Err()
}

// SaveTransaction inserts or updates a transaction, keeping its original
// position in the insertion order on update.
func (s *SQLite) SaveTransaction(txn *ledger.Transaction) error {
	query := `
	INSERT INTO transactions
		(id, side, date, description, reference, amount, currency,
		 status, confidence, category, partner, bank_account, account_number)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(side, id) DO UPDATE SET
		date = excluded.date,
		description = excluded.description,
		reference = excluded.reference,
		amount = excluded.amount,
		currency = excluded.currency,
		status = excluded.status,
		confidence = excluded.confidence,
		category = excluded.category,
		partner = excluded.partner,
		bank_account = excluded.bank_account,
		account_number = excluded.account_number
	`

	_, err := s.db.Exec(query,
		txn.ID,
		txn.Side,
		txn.Date,
		txn.Description,
		txn.Reference,
		txn.Amount.String(),
		txn.Currency,
		txn.Status,
		txn.Confidence,
		txn.Category,
		txn.Partner,
		txn.BankAccount,
		txn.AccountNumber,
	)

	return err
}

// UpdateTransactionStatus sets status and confidence for an existing
// transaction.
func (s *SQLite) UpdateTransactionStatus(id string, status ledger.Status, confidence int) error {
	return updateStatus(s.db, id, status, confidence)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func updateStatus(db execer, id string, status ledger.Status, confidence int) error {
	result, err := db.Exec(
		`UPDATE transactions SET status = ?, confidence = ? WHERE id = ?`,
		status, confidence, id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s not in store", id)
	}

	return nil
}

const matchColumns = `id, bank_transaction_id, system_transaction_id, matched_at,
	matched_by, match_type, confidence, notes`

func scanMatch(row rowScanner) (*ledger.MatchRecord, error) {
	rec := &ledger.MatchRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.BankTransactionID,
		&rec.SystemTransactionID,
		&rec.MatchedAt,
		&rec.MatchedBy,
		&rec.MatchType,
		&rec.Confidence,
		&rec.Notes,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListMatches returns all match records in creation order.
func (s *SQLite) ListMatches() ([]*ledger.MatchRecord, error) {
	rows, err := s.db.Query(`SELECT ` + matchColumns + ` FROM match_records ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ledger.MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// GetMatch retrieves one match record by ID.
func (s *SQLite) GetMatch(id string) (*ledger.MatchRecord, error) {
	rec, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM match_records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// FindMatchByTransaction returns the match referencing the transaction on
// either side, or (nil, nil).
func (s *SQLite) FindMatchByTransaction(txnID string) (*ledger.MatchRecord, error) {
	rec, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM match_records
		 WHERE bank_transaction_id = ? OR system_transaction_id = ?`, txnID, txnID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// CreateMatch inserts the record and marks both referenced transactions
// matched, in one SQL transaction.
func (s *SQLite) CreateMatch(rec *ledger.MatchRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if rec.ID == "" {
		seq, err := nextCounter(tx, "match_seq")
		if err != nil {
			return err
		}
		rec.ID = ledger.FormatMatchID(seq)
	} else {
		var seq int
		if _, err := fmt.Sscanf(rec.ID, "M%d", &seq); err == nil {
			if err := advanceCounter(tx, "match_seq", seq); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO match_records
			(id, bank_transaction_id, system_transaction_id, matched_at,
			 matched_by, match_type, confidence, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.BankTransactionID,
		rec.SystemTransactionID,
		rec.MatchedAt,
		rec.MatchedBy,
		rec.MatchType,
		rec.Confidence,
		rec.Notes,
	)
	if err != nil {
		return err
	}

	if err := updateStatus(tx, rec.BankTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}
	if err := updateStatus(tx, rec.SystemTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteMatch removes the record and resets both referenced transactions to
// unmatched, in one SQL transaction.
func (s *SQLite) DeleteMatch(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanMatch(tx.QueryRow(
		`SELECT `+matchColumns+` FROM match_records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return fmt.Errorf("match %s not in store", id)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM match_records WHERE id = ?`, id); err != nil {
		return err
	}

	if err := updateStatus(tx, rec.BankTransactionID, ledger.StatusUnmatched, 0); err != nil {
		return err
	}
	if err := updateStatus(tx, rec.SystemTransactionID, ledger.StatusUnmatched, 0); err != nil {
		return err
	}

	return tx.Commit()
}

func nextCounter(tx *sql.Tx, name string) (int, error) {
	if _, err := tx.Exec(`UPDATE id_counters SET value = value + 1 WHERE name = ?`, name); err != nil {
		return 0, err
	}

	var value int
	if err := tx.QueryRow(`SELECT value FROM id_counters WHERE name = ?`, name).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

func advanceCounter(tx *sql.Tx, name string, floor int) error {
	_, err := tx.Exec(`UPDATE id_counters SET value = MAX(value, ?) WHERE name = ?`, floor, name)
	return err
}

const exceptionColumns = `id, type, severity, bank_transaction_id,
	system_transaction_id, suggested_action, description`

func scanException(row rowScanner) (*ledger.Exception, error) {
	exc := &ledger.Exception{}
	err := row.Scan(
		&exc.ID,
		&exc.Type,
		&exc.Severity,
		&exc.BankTransactionID,
		&exc.SystemTransactionID,
		&exc.SuggestedAction,
		&exc.Description,
	)
	if err != nil {
		return nil, err
	}
	return exc, nil
}

// ListExceptions returns all open exceptions in insertion order.
func (s *SQLite) ListExceptions() ([]*ledger.Exception, error) {
	rows, err := s.db.Query(`SELECT ` + exceptionColumns + ` FROM exceptions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ledger.Exception
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exc)
	}

	return out, rows.Err()
}

// GetException retrieves one exception by ID.
func (s *SQLite) GetException(id string) (*ledger.Exception, error) {
	exc, err := scanException(s.db.QueryRow(
		`SELECT `+exceptionColumns+` FROM exceptions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return exc, err
}

// SaveException inserts or updates an exception.
func (s *SQLite) SaveException(exc *ledger.Exception) error {
	query := `
	INSERT INTO exceptions
		(id, type, severity, bank_transaction_id, system_transaction_id,
		 suggested_action, description)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		type = excluded.type,
		severity = excluded.severity,
		bank_transaction_id = excluded.bank_transaction_id,
		system_transaction_id = excluded.system_transaction_id,
		suggested_action = excluded.suggested_action,
		description = excluded.description
	`

	_, err := s.db.Exec(query,
		exc.ID,
		exc.Type,
		exc.Severity,
		exc.BankTransactionID,
		exc.SystemTransactionID,
		exc.SuggestedAction,
		exc.Description,
	)

	return err
}

// DeleteException removes one exception by ID.
func (s *SQLite) DeleteException(id string) error {
	result, err := s.db.Exec(`DELETE FROM exceptions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("exception %s not in store", id)
	}

	return nil
}

// DeleteExceptionsByType removes every exception of the given type and
// returns the removed records in their original order.
func (s *SQLite) DeleteExceptionsByType(t ledger.ExceptionType) ([]*ledger.Exception, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(
		`SELECT `+exceptionColumns+` FROM exceptions WHERE type = ? ORDER BY seq`, t)
	if err != nil {
		return nil, err
	}

	var removed []*ledger.Exception
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		removed = append(removed, exc)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if _, err := tx.Exec(`DELETE FROM exceptions WHERE type = ?`, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return removed, nil
}

const watchlistColumns = `id, description, amount, added_date, expected_clear_date, type`

func scanWatchlistItem(row rowScanner) (*ledger.WatchlistItem, error) {
	item := &ledger.WatchlistItem{}
	var amount string
	err := row.Scan(
		&item.ID,
		&item.Description,
		&amount,
		&item.AddedDate,
		&item.ExpectedClearDate,
		&item.Type,
	)
	if err != nil {
		return nil, err
	}

	item.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount for watchlist item %s: %w", item.ID, err)
	}

	return item, nil
}

// ListWatchlist returns all monitored items in insertion order.
func (s *SQLite) ListWatchlist() ([]*ledger.WatchlistItem, error) {
	rows, err := s.db.Query(`SELECT ` + watchlistColumns + ` FROM watchlist_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ledger.WatchlistItem
	for rows.Next() {
		item, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	return out, rows.Err()
}

// GetWatchlistItem retrieves one monitored item by ID.
func (s *SQLite) GetWatchlistItem(id string) (*ledger.WatchlistItem, error) {
	item, err := scanWatchlistItem(s.db.QueryRow(
		`SELECT `+watchlistColumns+` FROM watchlist_items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// CreateWatchlistItem inserts the item, assigning a W-sequence ID when
// empty.
func (s *SQLite) CreateWatchlistItem(item *ledger.WatchlistItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if item.ID == "" {
		seq, err := nextCounter(tx, "watchlist_seq")
		if err != nil {
			return err
		}
		item.ID = ledger.FormatWatchlistID(seq)
	} else {
		var seq int
		if _, err := fmt.Sscanf(item.ID, "W%d", &seq); err == nil {
			if err := advanceCounter(tx, "watchlist_seq", seq); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO watchlist_items
			(id, description, amount, added_date, expected_clear_date, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Description,
		item.Amount.String(),
		item.AddedDate,
		item.ExpectedClearDate,
		item.Type,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteWatchlistItem removes one monitored item by ID.
func (s *SQLite) DeleteWatchlistItem(id string) error {
	result, err := s.db.Exec(`DELETE FROM watchlist_items WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("watchlist item %s not in store", id)
	}

	return nil
}

// ListAccounts returns all settlement accounts.
func (s *SQLite) ListAccounts() ([]*ledger.Account, error) {
	rows, err := s.db.Query(
		`SELECT id, name, balance, status, last_reconciled FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*ledger.Account
	for rows.Next() {
		acct := &ledger.Account{}
		var balance string
		err := rows.Scan(&acct.ID, &acct.Name, &balance, &acct.Status, &acct.LastReconciled)
		if err != nil {
			return nil, err
		}
		acct.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("bad balance for account %s: %w", acct.ID, err)
		}
		out = append(out, acct)
	}

	return out, rows.Err()
}

// SaveAccount inserts or updates a settlement account.
func (s *SQLite) SaveAccount(acct *ledger.Account) error {
	query := `
	INSERT INTO accounts (id, name, balance, status, last_reconciled)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		balance = excluded.balance,
		status = excluded.status,
		last_reconciled = excluded.last_reconciled
	`

	_, err := s.db.Exec(query,
		acct.ID,
		acct.Name,
		acct.Balance.String(),
		acct.Status,
		acct.LastReconciled,
	)

	return err
}
