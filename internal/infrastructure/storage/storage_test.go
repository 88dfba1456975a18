package storage_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
	"github.com/reconhq/recon-backend/internal/infrastructure/storage"
)

// repoFactories builds one fresh repository per backend so every subtest
// runs against both the in-memory store and SQLite.
func repoFactories(t *testing.T) map[string]func() ledger.Repository {
	t.Helper()
	return map[string]func() ledger.Repository{
		"memory": func() ledger.Repository {
			return storage.NewMemory()
		},
		"sqlite": func() ledger.Repository {
			repo, err := storage.NewSQLite(":memory:")
			require.NoError(t, err)
			return repo
		},
	}
}

func sampleTxn(id string, side ledger.Side) *ledger.Transaction {
	return &ledger.Transaction{
		ID:          id,
		Date:        time.Date(2024, 10, 30, 0, 0, 0, 0, time.UTC),
		Description: "CARD SCHEME SETTLEMENT",
		Reference:   "REF-" + id,
		Amount:      decimal.RequireFromString("45000.50"),
		Currency:    "USD",
		Side:        side,
		Status:      ledger.StatusUnmatched,
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			txn := sampleTxn("B001", ledger.SideBank)
			txn.Partner = "VISA International"
			require.NoError(t, repo.SaveTransaction(txn))

			got, err := repo.GetTransaction(ledger.SideBank, "B001")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "REF-B001", got.Reference)
			assert.Equal(t, "VISA International", got.Partner)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString("45000.50")))
			assert.Equal(t, txn.Date.Unix(), got.Date.Unix())

			t.Run("missing returns nil, nil", func(t *testing.T) {
				got, err := repo.GetTransaction(ledger.SideBank, "B999")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("side scoping", func(t *testing.T) {
				got, err := repo.GetTransaction(ledger.SideSystem, "B001")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("save again updates in place", func(t *testing.T) {
				txn.Status = ledger.StatusPending
				require.NoError(t, repo.SaveTransaction(txn))

				all, err := repo.ListTransactions(ledger.SideBank)
				require.NoError(t, err)
				require.Len(t, all, 1)
				assert.Equal(t, ledger.StatusPending, all[0].Status)
			})
		})
	}
}

func TestListTransactionsKeepsInsertionOrder(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			for _, id := range []string{"B003", "B001", "B002"} {
				require.NoError(t, repo.SaveTransaction(sampleTxn(id, ledger.SideBank)))
			}
			require.NoError(t, repo.SaveTransaction(sampleTxn("S001", ledger.SideSystem)))

			all, err := repo.ListTransactions(ledger.SideBank)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "B003", all[0].ID)
			assert.Equal(t, "B001", all[1].ID)
			assert.Equal(t, "B002", all[2].ID)
		})
	}
}

func TestFindTransactionByID(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			require.NoError(t, repo.SaveTransaction(sampleTxn("B001", ledger.SideBank)))
			require.NoError(t, repo.SaveTransaction(sampleTxn("S001", ledger.SideSystem)))

			got, err := repo.FindTransactionByID("S001")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, ledger.SideSystem, got.Side)

			got, err = repo.FindTransactionByID("X001")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestCreateMatch(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			require.NoError(t, repo.SaveTransaction(sampleTxn("B001", ledger.SideBank)))
			require.NoError(t, repo.SaveTransaction(sampleTxn("S001", ledger.SideSystem)))

			rec := &ledger.MatchRecord{
				BankTransactionID:   "B001",
				SystemTransactionID: "S001",
				MatchedAt:           time.Date(2024, 10, 30, 9, 32, 0, 0, time.UTC),
				MatchedBy:           "sarah.lim@finhub.sg",
				MatchType:           ledger.MatchManual,
				Confidence:          100,
			}
			require.NoError(t, repo.CreateMatch(rec))
			assert.Equal(t, "M001", rec.ID)

			t.Run("both transactions flipped to matched", func(t *testing.T) {
				for _, side := range []ledger.Side{ledger.SideBank, ledger.SideSystem} {
					id := "B001"
					if side == ledger.SideSystem {
						id = "S001"
					}
					txn, err := repo.GetTransaction(side, id)
					require.NoError(t, err)
					assert.Equal(t, ledger.StatusMatched, txn.Status)
					assert.Equal(t, 100, txn.Confidence)
				}
			})

			t.Run("find by either transaction", func(t *testing.T) {
				found, err := repo.FindMatchByTransaction("S001")
				require.NoError(t, err)
				require.NotNil(t, found)
				assert.Equal(t, "M001", found.ID)

				found, err = repo.FindMatchByTransaction("S002")
				require.NoError(t, err)
				assert.Nil(t, found)
			})

			t.Run("unknown transaction leaves the record out", func(t *testing.T) {
				bad := &ledger.MatchRecord{
					BankTransactionID:   "B999",
					SystemTransactionID: "S001",
					MatchedAt:           time.Now(),
					MatchType:           ledger.MatchManual,
				}
				require.Error(t, repo.CreateMatch(bad))

				matches, err := repo.ListMatches()
				require.NoError(t, err)
				assert.Len(t, matches, 1)
			})
		})
	}
}

func TestMatchIDSequence(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			for _, id := range []string{"B001", "B002"} {
				require.NoError(t, repo.SaveTransaction(sampleTxn(id, ledger.SideBank)))
			}
			for _, id := range []string{"S001", "S002"} {
				require.NoError(t, repo.SaveTransaction(sampleTxn(id, ledger.SideSystem)))
			}

			// A preset ID advances the sequence past itself
			preset := &ledger.MatchRecord{
				ID:                  "M007",
				BankTransactionID:   "B001",
				SystemTransactionID: "S001",
				MatchedAt:           time.Now(),
				MatchType:           ledger.MatchAuto,
			}
			require.NoError(t, repo.CreateMatch(preset))

			next := &ledger.MatchRecord{
				BankTransactionID:   "B002",
				SystemTransactionID: "S002",
				MatchedAt:           time.Now(),
				MatchType:           ledger.MatchAuto,
			}
			require.NoError(t, repo.CreateMatch(next))
			assert.Equal(t, "M008", next.ID)
		})
	}
}

func TestDeleteMatch(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			require.NoError(t, repo.SaveTransaction(sampleTxn("B001", ledger.SideBank)))
			require.NoError(t, repo.SaveTransaction(sampleTxn("S001", ledger.SideSystem)))

			rec := &ledger.MatchRecord{
				BankTransactionID:   "B001",
				SystemTransactionID: "S001",
				MatchedAt:           time.Now(),
				MatchType:           ledger.MatchAuto,
				Confidence:          95,
			}
			require.NoError(t, repo.CreateMatch(rec))
			require.NoError(t, repo.DeleteMatch(rec.ID))

			txn, err := repo.GetTransaction(ledger.SideBank, "B001")
			require.NoError(t, err)
			assert.Equal(t, ledger.StatusUnmatched, txn.Status)
			assert.Zero(t, txn.Confidence)

			matches, err := repo.ListMatches()
			require.NoError(t, err)
			assert.Empty(t, matches)

			assert.Error(t, repo.DeleteMatch("M999"))
		})
	}
}

func TestExceptions(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			for _, exc := range []*ledger.Exception{
				{ID: "E001", Type: ledger.ExceptionTiming, Severity: ledger.SeverityLow, Description: "first"},
				{ID: "E002", Type: ledger.ExceptionDuplicate, Severity: ledger.SeverityMedium, Description: "second"},
				{ID: "E003", Type: ledger.ExceptionTiming, Severity: ledger.SeverityLow, Description: "third"},
			} {
				require.NoError(t, repo.SaveException(exc))
			}

			t.Run("get and list", func(t *testing.T) {
				exc, err := repo.GetException("E002")
				require.NoError(t, err)
				require.NotNil(t, exc)
				assert.Equal(t, ledger.ExceptionDuplicate, exc.Type)

				all, err := repo.ListExceptions()
				require.NoError(t, err)
				assert.Len(t, all, 3)
			})

			t.Run("delete by type returns removed in order", func(t *testing.T) {
				removed, err := repo.DeleteExceptionsByType(ledger.ExceptionTiming)
				require.NoError(t, err)
				require.Len(t, removed, 2)
				assert.Equal(t, "E001", removed[0].ID)
				assert.Equal(t, "E003", removed[1].ID)

				all, err := repo.ListExceptions()
				require.NoError(t, err)
				require.Len(t, all, 1)
				assert.Equal(t, "E002", all[0].ID)
			})

			t.Run("delete single", func(t *testing.T) {
				require.NoError(t, repo.DeleteException("E002"))
				assert.Error(t, repo.DeleteException("E002"))
			})
		})
	}
}

func TestWatchlistStore(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			preset := &ledger.WatchlistItem{
				ID:                "W003",
				Description:       "FX Settlement - Partner A",
				Amount:            decimal.RequireFromString("125000"),
				AddedDate:         time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC),
				ExpectedClearDate: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
				Type:              ledger.WatchTiming,
			}
			require.NoError(t, repo.CreateWatchlistItem(preset))

			auto := &ledger.WatchlistItem{
				Description:       "Card Scheme Settlement",
				Amount:            decimal.RequireFromString("-87500"),
				AddedDate:         time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC),
				ExpectedClearDate: time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
				Type:              ledger.WatchPartial,
			}
			require.NoError(t, repo.CreateWatchlistItem(auto))
			assert.Equal(t, "W004", auto.ID)

			got, err := repo.GetWatchlistItem("W004")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString("-87500")))

			items, err := repo.ListWatchlist()
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "W003", items[0].ID)

			require.NoError(t, repo.DeleteWatchlistItem("W003"))
			assert.Error(t, repo.DeleteWatchlistItem("W003"))
		})
	}
}

func TestAccounts(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			acct := &ledger.Account{
				ID:             "1",
				Name:           "SGD Settlement Account",
				Balance:        decimal.RequireFromString("12450000"),
				Status:         ledger.AccountReconciled,
				LastReconciled: time.Date(2024, 10, 30, 9, 35, 0, 0, time.UTC),
			}
			require.NoError(t, repo.SaveAccount(acct))

			acct.Status = ledger.AccountPending
			require.NoError(t, repo.SaveAccount(acct))

			accounts, err := repo.ListAccounts()
			require.NoError(t, err)
			require.Len(t, accounts, 1)
			assert.Equal(t, ledger.AccountPending, accounts[0].Status)
			assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("12450000")))
		})
	}
}

func TestSeed(t *testing.T) {
	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			defer func() { _ = repo.Close() }()

			require.NoError(t, storage.Seed(repo))

			bank, err := repo.ListTransactions(ledger.SideBank)
			require.NoError(t, err)
			assert.Len(t, bank, 5)

			system, err := repo.ListTransactions(ledger.SideSystem)
			require.NoError(t, err)
			assert.Len(t, system, 4)

			matches, err := repo.ListMatches()
			require.NoError(t, err)
			assert.Len(t, matches, 3)

			exceptions, err := repo.ListExceptions()
			require.NoError(t, err)
			assert.Len(t, exceptions, 4)

			watchlist, err := repo.ListWatchlist()
			require.NoError(t, err)
			assert.Len(t, watchlist, 3)

			accounts, err := repo.ListAccounts()
			require.NoError(t, err)
			assert.Len(t, accounts, 3)

			t.Run("seeded IDs advance the sequences", func(t *testing.T) {
				require.NoError(t, repo.SaveTransaction(sampleTxn("B006", ledger.SideBank)))
				require.NoError(t, repo.SaveTransaction(sampleTxn("S005", ledger.SideSystem)))

				rec := &ledger.MatchRecord{
					BankTransactionID:   "B006",
					SystemTransactionID: "S005",
					MatchedAt:           time.Now(),
					MatchType:           ledger.MatchAuto,
				}
				require.NoError(t, repo.CreateMatch(rec))
				assert.Equal(t, "M004", rec.ID)

				item := &ledger.WatchlistItem{
					Description:       "new item",
					Amount:            decimal.Zero,
					AddedDate:         time.Now(),
					ExpectedClearDate: time.Now().AddDate(0, 0, 3),
					Type:              ledger.WatchPending,
				}
				require.NoError(t, repo.CreateWatchlistItem(item))
				assert.Equal(t, "W004", item.ID)
			})
		})
	}
}

func TestMemoryErrorInjection(t *testing.T) {
	repo := storage.NewMemory()
	require.NoError(t, repo.SaveTransaction(sampleTxn("B001", ledger.SideBank)))
	require.NoError(t, repo.SaveTransaction(sampleTxn("S001", ledger.SideSystem)))

	repo.CreateMatchErr = assert.AnError
	err := repo.CreateMatch(&ledger.MatchRecord{
		BankTransactionID:   "B001",
		SystemTransactionID: "S001",
		MatchedAt:           time.Now(),
		MatchType:           ledger.MatchAuto,
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, repo.CreateMatchCalled)

	txn, err := repo.GetTransaction(ledger.SideBank, "B001")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnmatched, txn.Status)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dbPath := t.TempDir() + "/recon.db"

	repo, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, storage.Seed(repo))
	require.NoError(t, repo.Close())

	reopened, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	bank, err := reopened.ListTransactions(ledger.SideBank)
	require.NoError(t, err)
	assert.Len(t, bank, 5)

	// The M-sequence survives the reopen too
	require.NoError(t, reopened.SaveTransaction(sampleTxn("B006", ledger.SideBank)))
	require.NoError(t, reopened.SaveTransaction(sampleTxn("S005", ledger.SideSystem)))

	rec := &ledger.MatchRecord{
		BankTransactionID:   "B006",
		SystemTransactionID: "S005",
		MatchedAt:           time.Now(),
		MatchType:           ledger.MatchAuto,
	}
	require.NoError(t, reopened.CreateMatch(rec))
	assert.Equal(t, "M004", rec.ID)
}
