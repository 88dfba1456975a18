package ledger

import "fmt"

// FindTransaction returns the transaction with the given ID on the given
// side, or a NotFoundError.
func (s *Service) FindTransaction(side Side, id string) (*Transaction, error) {
	if !side.Valid() {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown side %q", side)}
	}

	txn, err := s.repo.GetTransaction(side, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		return nil, &NotFoundError{Kind: "transaction", ID: id}
	}

	return txn, nil
}

// SearchTransactions returns transactions on the given side whose
// description, reference, partner, bank account, or account number contains
// the query, case-insensitively. An empty query returns the whole side.
// Insertion order is preserved.
func (s *Service) SearchTransactions(side Side, query string) ([]*Transaction, error) {
	if !side.Valid() {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown side %q", side)}
	}

	all, err := s.repo.ListTransactions(side)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if query == "" {
		return all, nil
	}

	matched := make([]*Transaction, 0, len(all))
	for _, txn := range all {
		if txn.MatchesQuery(query) {
			matched = append(matched, txn)
		}
	}

	return matched, nil
}

// ListUnmatched returns transactions on the given side that are not
// currently matched, in insertion order.
func (s *Service) ListUnmatched(side Side) ([]*Transaction, error) {
	all, err := s.SearchTransactions(side, "")
	if err != nil {
		return nil, err
	}

	unmatched := make([]*Transaction, 0, len(all))
	for _, txn := range all {
		if txn.Status != StatusMatched {
			unmatched = append(unmatched, txn)
		}
	}

	return unmatched, nil
}

// SetTransactionStatus updates status and confidence for an existing
// transaction on either side.
func (s *Service) SetTransactionStatus(id string, status Status, confidence int) error {
	if !status.Valid() {
		return &InvariantViolationError{Message: fmt.Sprintf("unknown status %q", status)}
	}
	if confidence < 0 || confidence > 100 {
		return &InvariantViolationError{Message: fmt.Sprintf("confidence %d out of range 0-100", confidence)}
	}

	txn, err := s.repo.FindTransactionByID(id)
	if err != nil {
		return fmt.Errorf("find transaction: %w", err)
	}
	if txn == nil {
		return &NotFoundError{Kind: "transaction", ID: id}
	}

	if err := s.repo.UpdateTransactionStatus(id, status, confidence); err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	return nil
}
