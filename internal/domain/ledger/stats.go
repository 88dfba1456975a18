package ledger

import "fmt"

// Stats is the dashboard snapshot: overall reconciliation progress plus the
// settlement accounts.
type Stats struct {
	TotalTransactions int
	Matched           int
	Unmatched         int
	Pending           int
	Exceptions        int
	OpenExceptions    int
	WatchlistCount    int
	MatchRate         int // percent of transactions currently matched
	Accounts          []*Account
}

// Stats recomputes the dashboard snapshot from the current stores.
func (s *Service) Stats() (*Stats, error) {
	stats := &Stats{}

	for _, side := range []Side{SideBank, SideSystem} {
		txns, err := s.repo.ListTransactions(side)
		if err != nil {
			return nil, fmt.Errorf("list %s transactions: %w", side, err)
		}
		stats.TotalTransactions += len(txns)
		for _, txn := range txns {
			switch txn.Status {
			case StatusMatched:
				stats.Matched++
			case StatusUnmatched:
				stats.Unmatched++
			case StatusPending:
				stats.Pending++
			case StatusException:
				stats.Exceptions++
			}
		}
	}

	if stats.TotalTransactions > 0 {
		stats.MatchRate = stats.Matched * 100 / stats.TotalTransactions
	}

	exceptions, err := s.repo.ListExceptions()
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	stats.OpenExceptions = len(exceptions)

	watchlist, err := s.repo.ListWatchlist()
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	stats.WatchlistCount = len(watchlist)

	accounts, err := s.repo.ListAccounts()
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	stats.Accounts = accounts

	return stats, nil
}
