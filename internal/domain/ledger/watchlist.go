package ledger

import "fmt"

// ListWatchlist returns all monitored items in insertion order.
func (s *Service) ListWatchlist() ([]*WatchlistItem, error) {
	return s.repo.ListWatchlist()
}

// AddToWatchlist places an item under monitoring. A zero AddedDate is
// stamped with the current time; the ID is assigned from the W-sequence
// when empty.
func (s *Service) AddToWatchlist(item *WatchlistItem) (*WatchlistItem, error) {
	if item.Description == "" {
		return nil, &InvariantViolationError{Message: "watchlist item needs a description"}
	}
	switch item.Type {
	case WatchTiming, WatchPartial, WatchPending:
	default:
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown watchlist type %q", item.Type)}
	}
	if item.ExpectedClearDate.IsZero() {
		return nil, &InvariantViolationError{Message: "watchlist item needs an expected clear date"}
	}

	if item.AddedDate.IsZero() {
		item.AddedDate = s.now()
	}

	if err := s.repo.CreateWatchlistItem(item); err != nil {
		return nil, fmt.Errorf("create watchlist item: %w", err)
	}

	s.logger.Info("watchlist item added",
		"item_id", item.ID,
		"type", item.Type,
		"expected_clear", item.ExpectedClearDate.Format("2006-01-02"))

	return item, nil
}

// MarkWatchlistCleared removes an item whose matching entry has appeared.
func (s *Service) MarkWatchlistCleared(id string) error {
	item, err := s.repo.GetWatchlistItem(id)
	if err != nil {
		return fmt.Errorf("get watchlist item: %w", err)
	}
	if item == nil {
		return &NotFoundError{Kind: "watchlist item", ID: id}
	}

	if err := s.repo.DeleteWatchlistItem(id); err != nil {
		return fmt.Errorf("delete watchlist item: %w", err)
	}

	s.logger.Info("watchlist item cleared", "item_id", id)
	return nil
}
