package ledger_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
	"github.com/reconhq/recon-backend/internal/infrastructure/storage"
)

var testNow = time.Date(2024, 10, 31, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*ledger.Service, *storage.Memory) {
	t.Helper()

	repo := storage.NewMemory()
	require.NoError(t, storage.Seed(repo))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := ledger.NewService(repo, logger, ledger.WithClock(func() time.Time { return testNow }))

	return svc, repo
}

func TestFindTransaction(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("finds a bank transaction", func(t *testing.T) {
		txn, err := svc.FindTransaction(ledger.SideBank, "B001")
		require.NoError(t, err)
		assert.Equal(t, "FX-2024-1045", txn.Reference)
		assert.Equal(t, ledger.StatusException, txn.Status)
	})

	t.Run("unknown ID returns NotFoundError", func(t *testing.T) {
		_, err := svc.FindTransaction(ledger.SideBank, "B999")
		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "B999", notFound.ID)
	})

	t.Run("wrong side misses", func(t *testing.T) {
		_, err := svc.FindTransaction(ledger.SideSystem, "B001")
		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("invalid side rejected", func(t *testing.T) {
		_, err := svc.FindTransaction("ledger", "B001")
		var invariant *ledger.InvariantViolationError
		require.ErrorAs(t, err, &invariant)
	})
}

func TestSearchTransactions(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("empty query returns full side in insertion order", func(t *testing.T) {
		txns, err := svc.SearchTransactions(ledger.SideBank, "")
		require.NoError(t, err)
		require.Len(t, txns, 5)

		ids := make([]string, 0, len(txns))
		for _, txn := range txns {
			ids = append(ids, txn.ID)
		}
		assert.Equal(t, []string{"B001", "B002", "B003", "B004", "B005"}, ids)
	})

	t.Run("matches reference case-insensitively", func(t *testing.T) {
		txns, err := svc.SearchTransactions(ledger.SideBank, "visa-2024")
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, "B002", txns[0].ID)
	})

	t.Run("matches partner", func(t *testing.T) {
		txns, err := svc.SearchTransactions(ledger.SideSystem, "fintech partner")
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, "S001", txns[0].ID)
	})

	t.Run("matches bank account name", func(t *testing.T) {
		txns, err := svc.SearchTransactions(ledger.SideBank, "sgd settlement")
		require.NoError(t, err)
		require.Len(t, txns, 2)
	})

	t.Run("no hits returns empty slice", func(t *testing.T) {
		txns, err := svc.SearchTransactions(ledger.SideBank, "zzz-no-such")
		require.NoError(t, err)
		assert.Empty(t, txns)
	})
}

func TestListUnmatched(t *testing.T) {
	svc, _ := newTestService(t)

	txns, err := svc.ListUnmatched(ledger.SideBank)
	require.NoError(t, err)

	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
		assert.NotEqual(t, ledger.StatusMatched, txn.Status)
	}
	assert.Equal(t, []string{"B001", "B004"}, ids)
}

func TestMatch(t *testing.T) {
	t.Run("pairs two unmatched transactions", func(t *testing.T) {
		svc, _ := newTestService(t)

		rec, err := svc.Match(ledger.MatchInput{
			BankID:    "B001",
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
			Notes:     "FX spread accepted",
		})
		require.NoError(t, err)

		// Seed carries M001-M003, so the next ID continues the sequence
		assert.Equal(t, "M004", rec.ID)
		assert.Equal(t, 100, rec.Confidence) // manual default
		assert.Equal(t, testNow, rec.MatchedAt)

		bank, err := svc.FindTransaction(ledger.SideBank, "B001")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusMatched, bank.Status)
		assert.Equal(t, 100, bank.Confidence)

		system, err := svc.FindTransaction(ledger.SideSystem, "S001")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusMatched, system.Status)
	})

	t.Run("explicit confidence is kept", func(t *testing.T) {
		svc, _ := newTestService(t)

		rec, err := svc.Match(ledger.MatchInput{
			BankID:     "B001",
			SystemID:   "S001",
			MatchedBy:  "auto-reconciler",
			MatchType:  ledger.MatchAuto,
			Confidence: 87,
		})
		require.NoError(t, err)
		assert.Equal(t, 87, rec.Confidence)
	})

	t.Run("already matched transaction fails and leaves stores untouched", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.CreateMatchCalled = false

		_, err := svc.Match(ledger.MatchInput{
			BankID:    "B002", // matched in M001
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})

		var invalidPair *ledger.InvalidPairError
		require.ErrorAs(t, err, &invalidPair)
		assert.Contains(t, invalidPair.Reason, "M001")
		assert.False(t, repo.CreateMatchCalled)

		matches, err := svc.ListMatches()
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})

	t.Run("two transactions on the same side fail", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Match(ledger.MatchInput{
			BankID:    "B001",
			SystemID:  "B004",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})

		var invalidPair *ledger.InvalidPairError
		require.ErrorAs(t, err, &invalidPair)
	})

	t.Run("unknown transaction fails with NotFoundError", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.CreateMatchCalled = false

		_, err := svc.Match(ledger.MatchInput{
			BankID:    "B999",
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})

		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.False(t, repo.CreateMatchCalled)
	})

	t.Run("out of range confidence rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Match(ledger.MatchInput{
			BankID:     "B001",
			SystemID:   "S001",
			MatchedBy:  "auto-reconciler",
			MatchType:  ledger.MatchAuto,
			Confidence: 101,
		})

		var invariant *ledger.InvariantViolationError
		require.ErrorAs(t, err, &invariant)
	})
}

func TestUnmatch(t *testing.T) {
	t.Run("match then unmatch restores both transactions", func(t *testing.T) {
		svc, _ := newTestService(t)

		rec, err := svc.Match(ledger.MatchInput{
			BankID:    "B001",
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})
		require.NoError(t, err)

		require.NoError(t, svc.Unmatch(rec.ID, "matched in error"))

		bank, err := svc.FindTransaction(ledger.SideBank, "B001")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusUnmatched, bank.Status)
		assert.Zero(t, bank.Confidence)

		system, err := svc.FindTransaction(ledger.SideSystem, "S001")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusUnmatched, system.Status)

		matches, err := svc.ListMatches()
		require.NoError(t, err)
		assert.Len(t, matches, 3)

		// Both are free to match again
		rec2, err := svc.Match(ledger.MatchInput{
			BankID:    "B001",
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})
		require.NoError(t, err)
		assert.NotEqual(t, rec.ID, rec2.ID) // IDs are never reused
	})

	t.Run("unknown match fails with NotFoundError", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.Unmatch("M999", "")
		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestMatchedStatusAgreesWithRecords(t *testing.T) {
	// A transaction is matched exactly when one active record references it.
	svc, _ := newTestService(t)

	matches, err := svc.ListMatches()
	require.NoError(t, err)

	referenced := make(map[string]bool)
	for _, rec := range matches {
		referenced[rec.BankTransactionID] = true
		referenced[rec.SystemTransactionID] = true
	}

	for _, side := range []ledger.Side{ledger.SideBank, ledger.SideSystem} {
		txns, err := svc.SearchTransactions(side, "")
		require.NoError(t, err)
		for _, txn := range txns {
			assert.Equal(t, referenced[txn.ID], txn.Status == ledger.StatusMatched,
				"status of %s disagrees with match records", txn.ID)
		}
	}
}

func TestSearchMatches(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("empty query returns all in creation order", func(t *testing.T) {
		matches, err := svc.SearchMatches("")
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "M001", matches[0].ID)
		assert.Equal(t, "M003", matches[2].ID)
	})

	t.Run("finds by match ID", func(t *testing.T) {
		matches, err := svc.SearchMatches("m002")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "M002", matches[0].ID)
	})

	t.Run("finds by matched-by", func(t *testing.T) {
		matches, err := svc.SearchMatches("sarah.lim")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "M002", matches[0].ID)
	})

	t.Run("finds by referenced transaction fields", func(t *testing.T) {
		matches, err := svc.SearchMatches("tres-eur")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "M003", matches[0].ID)
	})

	t.Run("no hits returns empty slice", func(t *testing.T) {
		matches, err := svc.SearchMatches("zzz-no-such")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestFilterExceptions(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("all returns the full current list", func(t *testing.T) {
		exceptions, err := svc.FilterExceptions(ledger.FilterAll)
		require.NoError(t, err)
		assert.Len(t, exceptions, 4)
	})

	t.Run("empty filter behaves like all", func(t *testing.T) {
		exceptions, err := svc.FilterExceptions("")
		require.NoError(t, err)
		assert.Len(t, exceptions, 4)
	})

	t.Run("filters by type", func(t *testing.T) {
		exceptions, err := svc.FilterExceptions("timing")
		require.NoError(t, err)
		require.Len(t, exceptions, 1)
		assert.Equal(t, "E003", exceptions[0].ID)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := svc.FilterExceptions("mystery")
		var invariant *ledger.InvariantViolationError
		require.ErrorAs(t, err, &invariant)
	})
}

func TestCountExceptionsByType(t *testing.T) {
	svc, _ := newTestService(t)

	counts, total, err := svc.CountExceptionsByType()
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, counts[ledger.ExceptionTiming])
	assert.Equal(t, 1, counts[ledger.ExceptionDuplicate])
	assert.Equal(t, 1, counts[ledger.ExceptionAmountMismatch])
	assert.Equal(t, 1, counts[ledger.ExceptionUnmatched])
}

func TestResolveAndDismissException(t *testing.T) {
	t.Run("resolve removes the exception", func(t *testing.T) {
		svc, _ := newTestService(t)

		require.NoError(t, svc.ResolveException("E001", "post FX spread adjustment"))

		exceptions, err := svc.FilterExceptions(ledger.FilterAll)
		require.NoError(t, err)
		assert.Len(t, exceptions, 3)
		for _, exc := range exceptions {
			assert.NotEqual(t, "E001", exc.ID)
		}
	})

	t.Run("dismiss removes the exception", func(t *testing.T) {
		svc, _ := newTestService(t)

		require.NoError(t, svc.DismissException("E002"))

		exceptions, err := svc.FilterExceptions(ledger.FilterAll)
		require.NoError(t, err)
		assert.Len(t, exceptions, 3)
	})

	t.Run("unknown ID fails and leaves the list unchanged", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.ResolveException("E999", "")
		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)

		err = svc.DismissException("E999")
		require.ErrorAs(t, err, &notFound)

		exceptions, err := svc.FilterExceptions(ledger.FilterAll)
		require.NoError(t, err)
		assert.Len(t, exceptions, 4)
	})
}

func TestBulkResolveByType(t *testing.T) {
	svc, _ := newTestService(t)

	count, err := svc.BulkResolveByType(ledger.ExceptionTiming)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Only timing exceptions are gone; the rest keep their order
	exceptions, err := svc.FilterExceptions(ledger.FilterAll)
	require.NoError(t, err)
	ids := make([]string, 0, len(exceptions))
	for _, exc := range exceptions {
		ids = append(ids, exc.ID)
	}
	assert.Equal(t, []string{"E001", "E002", "E004"}, ids)

	// A second pass removes nothing
	count, err = svc.BulkResolveByType(ledger.ExceptionTiming)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBulkAccept(t *testing.T) {
	t.Run("timing exceptions land on the watchlist", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.BulkAccept(ledger.ExceptionTiming)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Resolved)
		require.Len(t, result.Watchlisted, 1)

		item := result.Watchlisted[0]
		// E003 is an aggregate notice: description comes from the exception,
		// no amount is known
		assert.Contains(t, item.Description, "partner settlements")
		assert.True(t, item.Amount.IsZero())
		assert.Equal(t, ledger.WatchTiming, item.Type)
		assert.Equal(t, testNow, item.AddedDate)
		assert.Equal(t, testNow.AddDate(0, 0, 3), item.ExpectedClearDate)
		assert.Equal(t, "W004", item.ID) // continues past the seeded W003

		watchlist, err := svc.ListWatchlist()
		require.NoError(t, err)
		assert.Len(t, watchlist, 4)
	})

	t.Run("non-timing types skip the watchlist", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.BulkAccept(ledger.ExceptionDuplicate)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Resolved)
		assert.Empty(t, result.Watchlisted)

		watchlist, err := svc.ListWatchlist()
		require.NoError(t, err)
		assert.Len(t, watchlist, 3)
	})

	t.Run("timing exception with a transaction reference copies its details", func(t *testing.T) {
		svc, repo := newTestService(t)

		require.NoError(t, repo.SaveException(&ledger.Exception{
			ID:                "E005",
			Type:              ledger.ExceptionTiming,
			Severity:          ledger.SeverityLow,
			BankTransactionID: "B004",
			Description:       "fee expected to clear",
		}))

		result, err := svc.BulkAccept(ledger.ExceptionTiming)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Resolved)
		require.Len(t, result.Watchlisted, 2)

		fromTxn := result.Watchlisted[1]
		assert.Equal(t, "CROSS-BORDER PAYMENT FEE", fromTxn.Description)
		assert.True(t, fromTxn.Amount.Equal(decimal.RequireFromString("-150")))
	})
}

func TestWatchlist(t *testing.T) {
	t.Run("add assigns the next W-sequence ID", func(t *testing.T) {
		svc, _ := newTestService(t)

		item, err := svc.AddToWatchlist(&ledger.WatchlistItem{
			Description:       "Pending GBP sweep",
			Amount:            decimal.RequireFromString("42000"),
			ExpectedClearDate: testNow.AddDate(0, 0, 5),
			Type:              ledger.WatchPending,
		})
		require.NoError(t, err)
		assert.Equal(t, "W004", item.ID)
		assert.Equal(t, testNow, item.AddedDate) // stamped by the clock
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _ := newTestService(t)

		var invariant *ledger.InvariantViolationError

		_, err := svc.AddToWatchlist(&ledger.WatchlistItem{
			Type:              ledger.WatchTiming,
			ExpectedClearDate: testNow,
		})
		require.ErrorAs(t, err, &invariant)

		_, err = svc.AddToWatchlist(&ledger.WatchlistItem{
			Description:       "no clear date",
			Type:              ledger.WatchTiming,
		})
		require.ErrorAs(t, err, &invariant)

		_, err = svc.AddToWatchlist(&ledger.WatchlistItem{
			Description:       "bad type",
			Type:              "someday",
			ExpectedClearDate: testNow,
		})
		require.ErrorAs(t, err, &invariant)
	})

	t.Run("clear removes the item", func(t *testing.T) {
		svc, _ := newTestService(t)

		require.NoError(t, svc.MarkWatchlistCleared("W002"))

		items, err := svc.ListWatchlist()
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "W001", items[0].ID)
		assert.Equal(t, "W003", items[1].ID)
	})

	t.Run("clearing an unknown item fails", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.MarkWatchlistCleared("W999")
		var notFound *ledger.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name     string
		clear    time.Time
		expected int
	}{
		{"due later today rounds up", testNow.Add(6 * time.Hour), 1},
		{"due in exactly two days", testNow.AddDate(0, 0, 2), 2},
		{"due two and a half days out rounds up", testNow.Add(60 * time.Hour), 3},
		{"already due floors at zero", testNow.Add(-6 * time.Hour), 0},
		{"long overdue floors at zero", testNow.AddDate(0, 0, -10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &ledger.WatchlistItem{ExpectedClearDate: tt.clear}
			assert.Equal(t, tt.expected, item.DaysRemaining(testNow))
		})
	}
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.Stats()
	require.NoError(t, err)

	assert.Equal(t, 9, stats.TotalTransactions)
	assert.Equal(t, 6, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, 2, stats.Exceptions)
	assert.Equal(t, 4, stats.OpenExceptions)
	assert.Equal(t, 3, stats.WatchlistCount)
	assert.Equal(t, 66, stats.MatchRate) // 6 of 9
	assert.Len(t, stats.Accounts, 3)

	t.Run("tracks mutations", func(t *testing.T) {
		_, err := svc.Match(ledger.MatchInput{
			BankID:    "B001",
			SystemID:  "S001",
			MatchedBy: "sarah.lim@finhub.sg",
			MatchType: ledger.MatchManual,
		})
		require.NoError(t, err)

		stats, err := svc.Stats()
		require.NoError(t, err)
		assert.Equal(t, 8, stats.Matched)
		assert.Equal(t, 88, stats.MatchRate)
		assert.Zero(t, stats.Exceptions) // B001/S001 were the exception-status pair
	})
}
