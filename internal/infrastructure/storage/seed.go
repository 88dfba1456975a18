package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// Seed loads the demo reconciliation dataset into an empty repository:
// the October 2024 multi-currency settlement snapshot with five bank
// transactions, four system transactions, three confirmed matches, four
// open exceptions, three watchlist items, and three settlement accounts.
func Seed(repo ledger.Repository) error {
	for _, txn := range SampleTransactions() {
		if err := repo.SaveTransaction(txn); err != nil {
			return fmt.Errorf("seed transaction %s: %w", txn.ID, err)
		}
	}

	for _, rec := range SampleMatches() {
		if err := repo.CreateMatch(rec); err != nil {
			return fmt.Errorf("seed match %s: %w", rec.ID, err)
		}
	}

	for _, exc := range SampleExceptions() {
		if err := repo.SaveException(exc); err != nil {
			return fmt.Errorf("seed exception %s: %w", exc.ID, err)
		}
	}

	for _, item := range SampleWatchlist() {
		if err := repo.CreateWatchlistItem(item); err != nil {
			return fmt.Errorf("seed watchlist item %s: %w", item.ID, err)
		}
	}

	for _, acct := range SampleAccounts() {
		if err := repo.SaveAccount(acct); err != nil {
			return fmt.Errorf("seed account %s: %w", acct.ID, err)
		}
	}

	return nil
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func amount(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// SampleTransactions returns the demo bank and system feeds.
func SampleTransactions() []*ledger.Transaction {
	return []*ledger.Transaction{
		{
			ID: "B001", Date: day("2024-10-30"),
			Description: "FX SETTLEMENT - FINTECH PARTNER A",
			Reference:   "FX-2024-1045",
			Amount:      amount("150000"), Currency: "SGD",
			Side: ledger.SideBank, Status: ledger.StatusException,
			Category: "FX Settlement", Partner: "Fintech Partner A",
			BankAccount: "SGD Settlement Account", AccountNumber: "021-48839-2",
		},
		{
			ID: "B002", Date: day("2024-10-30"),
			Description: "CARD SCHEME SETTLEMENT - VISA",
			Reference:   "VISA-2024-8842",
			Amount:      amount("45000"), Currency: "USD",
			Side: ledger.SideBank, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Card Settlement", Partner: "VISA International",
			BankAccount: "USD Multi-Currency Pool", AccountNumber: "021-55210-7",
		},
		{
			ID: "B003", Date: day("2024-10-30"),
			Description: "PLATFORM LICENSING FEE",
			Reference:   "LIC-Q4-1050",
			Amount:      amount("85000"), Currency: "USD",
			Side: ledger.SideBank, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Platform Revenue", Partner: "Corporate Client B",
			BankAccount: "USD Multi-Currency Pool", AccountNumber: "021-55210-7",
		},
		{
			ID: "B004", Date: day("2024-10-29"),
			Description: "CROSS-BORDER PAYMENT FEE",
			Reference:   "XB-FEE-10292024",
			Amount:      amount("-150"), Currency: "SGD",
			Side: ledger.SideBank, Status: ledger.StatusUnmatched,
			Category:    "Transaction Fees",
			BankAccount: "SGD Settlement Account", AccountNumber: "021-48839-2",
		},
		{
			ID: "B005", Date: day("2024-10-29"),
			Description: "TREASURY MANAGEMENT - EUR POOL",
			Reference:   "TRES-EUR-10252024",
			Amount:      amount("125000"), Currency: "EUR",
			Side: ledger.SideBank, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Treasury", Partner: "Bank Partner C",
			BankAccount: "FX Treasury Reserve", AccountNumber: "021-61005-4",
		},
		{
			ID: "S001", Date: day("2024-10-30"),
			Description: "FX Settlement Expected - Partner A",
			Reference:   "FX-2024-1045",
			Amount:      amount("149850"), Currency: "SGD",
			Side: ledger.SideSystem, Status: ledger.StatusException,
			Category: "FX Settlement", Partner: "Fintech Partner A",
		},
		{
			ID: "S002", Date: day("2024-10-30"),
			Description: "Card Scheme Settlement Booking",
			Reference:   "VISA-2024-8842",
			Amount:      amount("45000"), Currency: "USD",
			Side: ledger.SideSystem, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Card Settlement", Partner: "VISA International",
		},
		{
			ID: "S003", Date: day("2024-10-30"),
			Description: "Platform License Revenue Q4",
			Reference:   "LIC-Q4-1050",
			Amount:      amount("85000"), Currency: "USD",
			Side: ledger.SideSystem, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Platform Revenue", Partner: "Corporate Client B",
		},
		{
			ID: "S004", Date: day("2024-10-29"),
			Description: "Treasury EUR Pool Management",
			Reference:   "TRES-EUR-10252024",
			Amount:      amount("125000"), Currency: "EUR",
			Side: ledger.SideSystem, Status: ledger.StatusMatched, Confidence: 100,
			Category: "Treasury", Partner: "Bank Partner C",
		},
	}
}

// SampleMatches returns the confirmed matches behind the matched statuses in
// SampleTransactions.
func SampleMatches() []*ledger.MatchRecord {
	return []*ledger.MatchRecord{
		{
			ID:                  "M001",
			BankTransactionID:   "B002",
			SystemTransactionID: "S002",
			MatchedAt:           day("2024-10-30").Add(9*time.Hour + 32*time.Minute),
			MatchedBy:           "auto-reconciler",
			MatchType:           ledger.MatchAuto,
			Confidence:          100,
		},
		{
			ID:                  "M002",
			BankTransactionID:   "B003",
			SystemTransactionID: "S003",
			MatchedAt:           day("2024-10-30").Add(9*time.Hour + 35*time.Minute),
			MatchedBy:           "sarah.lim@finhub.sg",
			MatchType:           ledger.MatchManual,
			Confidence:          100,
			Notes:               "Quarterly licensing fee confirmed against contract LIC-Q4.",
		},
		{
			ID:                  "M003",
			BankTransactionID:   "B005",
			SystemTransactionID: "S004",
			MatchedAt:           day("2024-10-29").Add(16*time.Hour + 15*time.Minute),
			MatchedBy:           "auto-reconciler",
			MatchType:           ledger.MatchAuto,
			Confidence:          100,
		},
	}
}

// SampleExceptions returns the open discrepancies. E003 and E004 are
// aggregate notices with no transaction reference.
func SampleExceptions() []*ledger.Exception {
	return []*ledger.Exception{
		{
			ID: "E001", Type: ledger.ExceptionAmountMismatch, Severity: ledger.SeverityMedium,
			BankTransactionID: "B001", SystemTransactionID: "S001",
			SuggestedAction: "Match and post SGD 150 FX spread adjustment",
			Description:     "Bank amount (SGD 150,000) differs from system (SGD 149,850) by SGD 150 - FX spread variance",
		},
		{
			ID: "E002", Type: ledger.ExceptionUnmatched, Severity: ledger.SeverityLow,
			BankTransactionID: "B004",
			SuggestedAction:   "Create cross-border fee expense entry",
			Description:       "Cross-border payment fee with no matching system entry",
		},
		{
			ID: "E003", Type: ledger.ExceptionTiming, Severity: ledger.SeverityLow,
			Description: "18 partner settlements recorded today, expected to clear within 2 business days",
		},
		{
			ID: "E004", Type: ledger.ExceptionDuplicate, Severity: ledger.SeverityMedium,
			Description: "12 potential duplicate FX settlements detected across multiple currency pools",
		},
	}
}

// SampleWatchlist returns the settlements under monitoring.
func SampleWatchlist() []*ledger.WatchlistItem {
	return []*ledger.WatchlistItem{
		{
			ID:          "W001",
			Description: "FX Settlement - Partner A (USD/SGD)",
			Amount:      amount("125000"),
			AddedDate:   day("2024-10-28"), ExpectedClearDate: day("2024-11-01"),
			Type: ledger.WatchTiming,
		},
		{
			ID:          "W002",
			Description: "Card Scheme Settlement - Mastercard EUR",
			Amount:      amount("-87500"),
			AddedDate:   day("2024-10-29"), ExpectedClearDate: day("2024-10-31"),
			Type: ledger.WatchTiming,
		},
		{
			ID:          "W003",
			Description: "Partial Treasury Rebalance - GBP Pool",
			Amount:      amount("50000"),
			AddedDate:   day("2024-10-27"), ExpectedClearDate: day("2024-11-02"),
			Type: ledger.WatchPartial,
		},
	}
}

// SampleAccounts returns the settlement accounts shown on the dashboard.
func SampleAccounts() []*ledger.Account {
	lastReconciled := func(value string) time.Time {
		t, err := time.Parse("2006-01-02 15:04", value)
		if err != nil {
			panic(err)
		}
		return t
	}

	return []*ledger.Account{
		{
			ID: "1", Name: "SGD Settlement Account",
			Balance: amount("12450000"),
			Status:  ledger.AccountReconciled, LastReconciled: lastReconciled("2024-10-30 09:35"),
		},
		{
			ID: "2", Name: "USD Multi-Currency Pool",
			Balance: amount("8850000"),
			Status:  ledger.AccountReconciled, LastReconciled: lastReconciled("2024-10-30 09:32"),
		},
		{
			ID: "3", Name: "FX Treasury Reserve",
			Balance: amount("25200000"),
			Status:  ledger.AccountPending, LastReconciled: lastReconciled("2024-10-29 16:15"),
		},
	}
}
