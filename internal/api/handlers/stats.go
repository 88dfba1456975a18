package handlers

import (
	"net/http"
	"time"

	"github.com/reconhq/recon-backend/internal/api/dto"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// StatsHandler handles dashboard stats requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *ledger.Service) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(svc),
	}
}

// Get handles GET /api/stats - returns the dashboard snapshot.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats()
	if err != nil {
		h.WriteLedgerError(w, err)
		return
	}

	response := dto.StatsResponse{
		TotalTransactions: stats.TotalTransactions,
		Matched:           stats.Matched,
		Unmatched:         stats.Unmatched,
		Pending:           stats.Pending,
		Exceptions:        stats.Exceptions,
		OpenExceptions:    stats.OpenExceptions,
		WatchlistCount:    stats.WatchlistCount,
		MatchRate:         stats.MatchRate,
		Accounts:          make([]dto.AccountResponse, 0, len(stats.Accounts)),
	}
	for _, acct := range stats.Accounts {
		response.Accounts = append(response.Accounts, dto.AccountResponse{
			ID:             acct.ID,
			Name:           acct.Name,
			Balance:        acct.Balance.String(),
			Status:         string(acct.Status),
			LastReconciled: acct.LastReconciled.UTC().Format(time.RFC3339),
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
