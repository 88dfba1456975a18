package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FilterAll selects every exception regardless of type.
const FilterAll = "all"

// FilterExceptions returns open exceptions of the given type, or all of
// them for FilterAll, in insertion order.
func (s *Service) FilterExceptions(typeFilter string) ([]*Exception, error) {
	all, err := s.repo.ListExceptions()
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	if typeFilter == FilterAll || typeFilter == "" {
		return all, nil
	}

	t := ExceptionType(typeFilter)
	if !t.Valid() {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown exception type %q", typeFilter)}
	}

	filtered := make([]*Exception, 0, len(all))
	for _, exc := range all {
		if exc.Type == t {
			filtered = append(filtered, exc)
		}
	}

	return filtered, nil
}

// CountExceptionsByType recomputes per-type counts from the current list.
// No caching: the list is small and every mutation would invalidate it.
func (s *Service) CountExceptionsByType() (map[ExceptionType]int, int, error) {
	all, err := s.repo.ListExceptions()
	if err != nil {
		return nil, 0, fmt.Errorf("list exceptions: %w", err)
	}

	counts := make(map[ExceptionType]int)
	for _, exc := range all {
		counts[exc.Type]++
	}

	return counts, len(all), nil
}

// ResolveException removes an exception after the user accepted its
// suggested action. The removal itself is the whole effect; any follow-up
// posting happens through separate operations.
func (s *Service) ResolveException(id, action string) error {
	if err := s.removeException(id); err != nil {
		return err
	}

	s.logger.Info("exception resolved", "exception_id", id, "action", action)
	return nil
}

// DismissException removes an exception without action. Same removal as
// ResolveException; only the recorded intent differs.
func (s *Service) DismissException(id string) error {
	if err := s.removeException(id); err != nil {
		return err
	}

	s.logger.Info("exception dismissed", "exception_id", id)
	return nil
}

func (s *Service) removeException(id string) error {
	exc, err := s.repo.GetException(id)
	if err != nil {
		return fmt.Errorf("get exception: %w", err)
	}
	if exc == nil {
		return &NotFoundError{Kind: "exception", ID: id}
	}

	if err := s.repo.DeleteException(id); err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}

	return nil
}

// BulkResolveByType removes all exceptions of the given type and returns
// how many were removed. Other exceptions keep their order.
func (s *Service) BulkResolveByType(t ExceptionType) (int, error) {
	removed, err := s.bulkRemove(t)
	if err != nil {
		return 0, err
	}

	s.logger.Info("exceptions bulk-resolved", "type", t, "count", len(removed))
	return len(removed), nil
}

// BulkAcceptResult reports what a bulk-accept did.
type BulkAcceptResult struct {
	Resolved    int
	Watchlisted []*WatchlistItem
}

// BulkAccept removes all exceptions of the given type. Timing exceptions are
// additionally placed on the watchlist for 3-day monitoring: description and
// amount come from the referenced transaction when one exists, otherwise
// from the exception's own description (aggregate notices carry no amount).
func (s *Service) BulkAccept(t ExceptionType) (*BulkAcceptResult, error) {
	removed, err := s.bulkRemove(t)
	if err != nil {
		return nil, err
	}

	result := &BulkAcceptResult{Resolved: len(removed)}
	if t != ExceptionTiming {
		s.logger.Info("exceptions bulk-accepted", "type", t, "count", len(removed))
		return result, nil
	}

	now := s.now()
	for _, exc := range removed {
		item := &WatchlistItem{
			Description:       exc.Description,
			Amount:            decimal.Zero,
			AddedDate:         now,
			ExpectedClearDate: now.AddDate(0, 0, 3),
			Type:              WatchTiming,
		}

		txnID := exc.BankTransactionID
		if txnID == "" {
			txnID = exc.SystemTransactionID
		}
		if txnID != "" {
			txn, err := s.repo.FindTransactionByID(txnID)
			if err != nil {
				return nil, fmt.Errorf("find transaction %s: %w", txnID, err)
			}
			if txn != nil {
				item.Description = txn.Description
				item.Amount = txn.Amount
			}
		}

		if err := s.repo.CreateWatchlistItem(item); err != nil {
			return nil, fmt.Errorf("create watchlist item: %w", err)
		}
		result.Watchlisted = append(result.Watchlisted, item)
	}

	s.logger.Info("timing exceptions bulk-accepted",
		"resolved", result.Resolved,
		"watchlisted", len(result.Watchlisted))

	return result, nil
}

func (s *Service) bulkRemove(t ExceptionType) ([]*Exception, error) {
	if !t.Valid() {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown exception type %q", t)}
	}

	removed, err := s.repo.DeleteExceptionsByType(t)
	if err != nil {
		return nil, fmt.Errorf("delete exceptions by type: %w", err)
	}

	return removed, nil
}
