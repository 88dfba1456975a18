package ledger

import (
	"fmt"
	"strings"
)

// MatchInput carries the caller-supplied fields for a match operation.
type MatchInput struct {
	BankID    string
	SystemID  string
	MatchedBy string
	MatchType MatchType

	// Confidence is the 0-100 score to stamp on both transactions.
	// Zero means unspecified; manual matches then default to 100.
	Confidence int
	Notes      string
}

// Match pairs a bank transaction with a system transaction and returns the
// created record. It fails with InvalidPairError when the sides are wrong or
// either transaction is already referenced by an active match, and with
// NotFoundError when either ID is unknown. On failure no store is touched.
func (s *Service) Match(in MatchInput) (*MatchRecord, error) {
	if in.MatchType != MatchAuto && in.MatchType != MatchManual {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("unknown match type %q", in.MatchType)}
	}
	if in.Confidence < 0 || in.Confidence > 100 {
		return nil, &InvariantViolationError{Message: fmt.Sprintf("confidence %d out of range 0-100", in.Confidence)}
	}

	bank, err := s.repo.FindTransactionByID(in.BankID)
	if err != nil {
		return nil, fmt.Errorf("find bank transaction: %w", err)
	}
	if bank == nil {
		return nil, &NotFoundError{Kind: "transaction", ID: in.BankID}
	}
	system, err := s.repo.FindTransactionByID(in.SystemID)
	if err != nil {
		return nil, fmt.Errorf("find system transaction: %w", err)
	}
	if system == nil {
		return nil, &NotFoundError{Kind: "transaction", ID: in.SystemID}
	}

	if bank.Side != SideBank {
		return nil, &InvalidPairError{BankID: in.BankID, SystemID: in.SystemID,
			Reason: fmt.Sprintf("%s is a %s-side transaction", in.BankID, bank.Side)}
	}
	if system.Side != SideSystem {
		return nil, &InvalidPairError{BankID: in.BankID, SystemID: in.SystemID,
			Reason: fmt.Sprintf("%s is a %s-side transaction", in.SystemID, system.Side)}
	}

	for _, id := range []string{in.BankID, in.SystemID} {
		existing, err := s.repo.FindMatchByTransaction(id)
		if err != nil {
			return nil, fmt.Errorf("check active match: %w", err)
		}
		if existing != nil {
			return nil, &InvalidPairError{BankID: in.BankID, SystemID: in.SystemID,
				Reason: fmt.Sprintf("%s is already matched in %s", id, existing.ID)}
		}
	}

	confidence := in.Confidence
	if confidence == 0 && in.MatchType == MatchManual {
		confidence = 100
	}

	rec := &MatchRecord{
		BankTransactionID:   in.BankID,
		SystemTransactionID: in.SystemID,
		MatchedAt:           s.now(),
		MatchedBy:           in.MatchedBy,
		MatchType:           in.MatchType,
		Confidence:          confidence,
		Notes:               in.Notes,
	}

	if err := s.repo.CreateMatch(rec); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	s.logger.Info("transactions matched",
		"match_id", rec.ID,
		"bank_id", in.BankID,
		"system_id", in.SystemID,
		"matched_by", in.MatchedBy,
		"type", in.MatchType)

	return rec, nil
}

// Unmatch removes a match record and resets both referenced transactions to
// unmatched with their confidence cleared.
func (s *Service) Unmatch(matchID, reason string) error {
	rec, err := s.repo.GetMatch(matchID)
	if err != nil {
		return fmt.Errorf("get match: %w", err)
	}
	if rec == nil {
		return &NotFoundError{Kind: "match", ID: matchID}
	}

	if err := s.repo.DeleteMatch(matchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	s.logger.Info("match reversed",
		"match_id", matchID,
		"bank_id", rec.BankTransactionID,
		"system_id", rec.SystemTransactionID,
		"reason", reason)

	return nil
}

// ListMatches returns all active match records in creation order.
func (s *Service) ListMatches() ([]*MatchRecord, error) {
	return s.repo.ListMatches()
}

// SearchMatches returns match records whose ID or matchedBy contains the
// query, or whose referenced transactions match it on reference, partner,
// bank account, or account number. An empty query returns everything.
func (s *Service) SearchMatches(query string) ([]*MatchRecord, error) {
	all, err := s.repo.ListMatches()
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	if query == "" {
		return all, nil
	}

	q := strings.ToLower(query)
	matched := make([]*MatchRecord, 0, len(all))
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.ID), q) ||
			strings.Contains(strings.ToLower(rec.MatchedBy), q) {
			matched = append(matched, rec)
			continue
		}

		hit := false
		for _, txnID := range []string{rec.BankTransactionID, rec.SystemTransactionID} {
			txn, err := s.repo.FindTransactionByID(txnID)
			if err != nil {
				return nil, fmt.Errorf("find transaction %s: %w", txnID, err)
			}
			if txn == nil {
				return nil, &InvariantViolationError{
					Message: fmt.Sprintf("match %s references missing transaction %s", rec.ID, txnID)}
			}
			for _, field := range []string{txn.Reference, txn.Partner, txn.BankAccount, txn.AccountNumber} {
				if field != "" && strings.Contains(strings.ToLower(field), q) {
					hit = true
					break
				}
			}
			if hit {
				break
			}
		}
		if hit {
			matched = append(matched, rec)
		}
	}

	return matched, nil
}
