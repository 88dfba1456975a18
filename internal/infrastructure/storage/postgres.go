package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// Postgres implements ledger.Repository on a pgx connection pool, for
// deployments where the store is shared between instances. The schema
// mirrors the SQLite one with NUMERIC amounts and BIGSERIAL ordering.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ ledger.Repository = (*Postgres)(nil)

const postgresQueryTimeout = 5 * time.Second

// NewPostgres connects to the database at dsn and ensures the schema
// exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	p := &Postgres{pool: pool}

	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return p, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			side TEXT NOT NULL,
			date TIMESTAMPTZ,
			description TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			amount NUMERIC NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'unmatched',
			confidence INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			partner TEXT NOT NULL DEFAULT '',
			bank_account TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			UNIQUE(side, id)
		)`,

		`CREATE TABLE IF NOT EXISTS match_records (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			bank_transaction_id TEXT UNIQUE NOT NULL,
			system_transaction_id TEXT UNIQUE NOT NULL,
			matched_at TIMESTAMPTZ NOT NULL,
			matched_by TEXT NOT NULL DEFAULT '',
			match_type TEXT NOT NULL,
			confidence INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS exceptions (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			bank_transaction_id TEXT NOT NULL DEFAULT '',
			system_transaction_id TEXT NOT NULL DEFAULT '',
			suggested_action TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS watchlist_items (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount NUMERIC NOT NULL DEFAULT 0,
			added_date TIMESTAMPTZ,
			expected_clear_date TIMESTAMPTZ,
			type TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			balance NUMERIC NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			last_reconciled TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS id_counters (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		)`,

		`INSERT INTO id_counters (name, value) VALUES ('match_seq', 0)
		 ON CONFLICT (name) DO NOTHING`,

		`INSERT INTO id_counters (name, value) VALUES ('watchlist_seq', 0)
		 ON CONFLICT (name) DO NOTHING`,
	}

	for _, query := range queries {
		if _, err := p.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}

func (p *Postgres) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), postgresQueryTimeout)
}

type pgxRow interface {
	Scan(dest ...any) error
}

func pgScanTransaction(row pgxRow) (*ledger.Transaction, error) {
	txn := &ledger.Transaction{}
	var amount decimal.Decimal
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
	txn.Amount = amount
	return txn, nil
}

// GetTransaction retrieves one transaction by side and ID.
func (p *Postgres) GetTransaction(side ledger.Side, id string) (*ledger.Transaction, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	txn, err := pgScanTransaction(p.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE side = $1 AND id = $2`,
		side, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return txn, err
}

// FindTransactionByID scans both sides for the given ID.
func (p *Postgres) FindTransactionByID(id string) (*ledger.Transaction, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	txn, err := pgScanTransaction(p.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 ORDER BY seq LIMIT 1`,
		id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return txn, err
}

// ListTransactions returns the side's transactions in insertion order.
func (p *Postgres) ListTransactions(side ledger.Side) ([]*ledger.Transaction, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE side = $1 ORDER BY seq`, side)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Transaction
	for rows.Next() {
		txn, err := pgScanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}

	return out, rows.Err()
}

// SaveTransaction inserts or updates a transaction.
func (p *Postgres) SaveTransaction(txn *ledger.Transaction) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO transactions
			(id, side, date, description, reference, amount, currency,
			 status, confidence, category, partner, bank_account, account_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (side, id) DO UPDATE SET
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
			account_number = excluded.account_number`,
		txn.ID, txn.Side, txn.Date, txn.Description, txn.Reference,
		txn.Amount, txn.Currency, txn.Status, txn.Confidence,
		txn.Category, txn.Partner, txn.BankAccount, txn.AccountNumber,
	)

	return err
}

func pgUpdateStatus(ctx context.Context, tx pgx.Tx, id string, status ledger.Status, confidence int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $1, confidence = $2 WHERE id = $3`,
		status, confidence, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not in store", id)
	}
	return nil
}

// UpdateTransactionStatus sets status and confidence for an existing
// transaction.
func (p *Postgres) UpdateTransactionStatus(id string, status ledger.Status, confidence int) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tag, err := p.pool.Exec(ctx,
		`UPDATE transactions SET status = $1, confidence = $2 WHERE id = $3`,
		status, confidence, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not in store", id)
	}
	return nil
}

func pgScanMatch(row pgxRow) (*ledger.MatchRecord, error) {
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
func (p *Postgres) ListMatches() ([]*ledger.MatchRecord, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT `+matchColumns+` FROM match_records ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.MatchRecord
	for rows.Next() {
		rec, err := pgScanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// GetMatch retrieves one match record by ID.
func (p *Postgres) GetMatch(id string) (*ledger.MatchRecord, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rec, err := pgScanMatch(p.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM match_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// FindMatchByTransaction returns the match referencing the transaction on
// either side, or (nil, nil).
func (p *Postgres) FindMatchByTransaction(txnID string) (*ledger.MatchRecord, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rec, err := pgScanMatch(p.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM match_records
		 WHERE bank_transaction_id = $1 OR system_transaction_id = $1`, txnID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// CreateMatch inserts the record and marks both referenced transactions
// matched, in one transaction.
func (p *Postgres) CreateMatch(rec *ledger.MatchRecord) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if rec.ID == "" {
		var seq int
		err := tx.QueryRow(ctx,
			`UPDATE id_counters SET value = value + 1 WHERE name = 'match_seq' RETURNING value`,
		).Scan(&seq)
		if err != nil {
			return err
		}
		rec.ID = ledger.FormatMatchID(seq)
	} else {
		var seq int
		if _, err := fmt.Sscanf(rec.ID, "M%d", &seq); err == nil {
			_, err := tx.Exec(ctx,
				`UPDATE id_counters SET value = GREATEST(value, $1) WHERE name = 'match_seq'`, seq)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO match_records
			(id, bank_transaction_id, system_transaction_id, matched_at,
			 matched_by, match_type, confidence, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.BankTransactionID, rec.SystemTransactionID, rec.MatchedAt,
		rec.MatchedBy, rec.MatchType, rec.Confidence, rec.Notes)
	if err != nil {
		return err
	}

	if err := pgUpdateStatus(ctx, tx, rec.BankTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}
	if err := pgUpdateStatus(ctx, tx, rec.SystemTransactionID, ledger.StatusMatched, rec.Confidence); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteMatch removes the record and resets both referenced transactions to
// unmatched, in one transaction.
func (p *Postgres) DeleteMatch(id string) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := pgScanMatch(tx.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM match_records WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("match %s not in store", id)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM match_records WHERE id = $1`, id); err != nil {
		return err
	}

	if err := pgUpdateStatus(ctx, tx, rec.BankTransactionID, ledger.StatusUnmatched, 0); err != nil {
		return err
	}
	if err := pgUpdateStatus(ctx, tx, rec.SystemTransactionID, ledger.StatusUnmatched, 0); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func pgScanException(row pgxRow) (*ledger.Exception, error) {
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
func (p *Postgres) ListExceptions() ([]*ledger.Exception, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT `+exceptionColumns+` FROM exceptions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Exception
	for rows.Next() {
		exc, err := pgScanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exc)
	}

	return out, rows.Err()
}

// GetException retrieves one exception by ID.
func (p *Postgres) GetException(id string) (*ledger.Exception, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	exc, err := pgScanException(p.pool.QueryRow(ctx,
		`SELECT `+exceptionColumns+` FROM exceptions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return exc, err
}

// SaveException inserts or updates an exception.
func (p *Postgres) SaveException(exc *ledger.Exception) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO exceptions
			(id, type, severity, bank_transaction_id, system_transaction_id,
			 suggested_action, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			severity = excluded.severity,
			bank_transaction_id = excluded.bank_transaction_id,
			system_transaction_id = excluded.system_transaction_id,
			suggested_action = excluded.suggested_action,
			description = excluded.description`,
		exc.ID, exc.Type, exc.Severity, exc.BankTransactionID,
		exc.SystemTransactionID, exc.SuggestedAction, exc.Description)

	return err
}

// DeleteException removes one exception by ID.
func (p *Postgres) DeleteException(id string) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tag, err := p.pool.Exec(ctx, `DELETE FROM exceptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exception %s not in store", id)
	}
	return nil
}

// DeleteExceptionsByType removes every exception of the given type and
// returns the removed records in their original order.
func (p *Postgres) DeleteExceptionsByType(t ledger.ExceptionType) ([]*ledger.Exception, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		DELETE FROM exceptions WHERE type = $1
		RETURNING `+exceptionColumns, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []*ledger.Exception
	for rows.Next() {
		exc, err := pgScanException(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, exc)
	}

	return removed, rows.Err()
}

func pgScanWatchlistItem(row pgxRow) (*ledger.WatchlistItem, error) {
	item := &ledger.WatchlistItem{}
	var amount decimal.Decimal
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
	item.Amount = amount
	return item, nil
}

// ListWatchlist returns all monitored items in insertion order.
func (p *Postgres) ListWatchlist() ([]*ledger.WatchlistItem, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.WatchlistItem
	for rows.Next() {
		item, err := pgScanWatchlistItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	return out, rows.Err()
}

// GetWatchlistItem retrieves one monitored item by ID.
func (p *Postgres) GetWatchlistItem(id string) (*ledger.WatchlistItem, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	item, err := pgScanWatchlistItem(p.pool.QueryRow(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// CreateWatchlistItem inserts the item, assigning a W-sequence ID when
// empty.
func (p *Postgres) CreateWatchlistItem(item *ledger.WatchlistItem) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if item.ID == "" {
		var seq int
		err := tx.QueryRow(ctx,
			`UPDATE id_counters SET value = value + 1 WHERE name = 'watchlist_seq' RETURNING value`,
		).Scan(&seq)
		if err != nil {
			return err
		}
		item.ID = ledger.FormatWatchlistID(seq)
	} else {
		var seq int
		if _, err := fmt.Sscanf(item.ID, "W%d", &seq); err == nil {
			_, err := tx.Exec(ctx,
				`UPDATE id_counters SET value = GREATEST(value, $1) WHERE name = 'watchlist_seq'`, seq)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO watchlist_items
			(id, description, amount, added_date, expected_clear_date, type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.Description, item.Amount, item.AddedDate,
		item.ExpectedClearDate, item.Type)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteWatchlistItem removes one monitored item by ID.
func (p *Postgres) DeleteWatchlistItem(id string) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	tag, err := p.pool.Exec(ctx, `DELETE FROM watchlist_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist item %s not in store", id)
	}
	return nil
}

// ListAccounts returns all settlement accounts.
func (p *Postgres) ListAccounts() ([]*ledger.Account, error) {
	ctx, cancel := p.queryCtx()
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, balance, status, last_reconciled FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Account
	for rows.Next() {
		acct := &ledger.Account{}
		var balance decimal.Decimal
		err := rows.Scan(&acct.ID, &acct.Name, &balance, &acct.Status, &acct.LastReconciled)
		if err != nil {
			return nil, err
		}
		acct.Balance = balance
		out = append(out, acct)
	}

	return out, rows.Err()
}

// SaveAccount inserts or updates a settlement account.
func (p *Postgres) SaveAccount(acct *ledger.Account) error {
	ctx, cancel := p.queryCtx()
	defer cancel()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, balance, status, last_reconciled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			balance = excluded.balance,
			status = excluded.status,
			last_reconciled = excluded.last_reconciled`,
		acct.ID, acct.Name, acct.Balance, acct.Status, acct.LastReconciled)

	return err
}
