package ledger

import (
	"log/slog"
	"time"
)

// Service is the reconciliation ledger facade. It composes the four record
// stores behind the Repository, validates every mutation against the ledger
// invariants, and refuses atomically when a precondition fails.
//
// Operations are synchronous and serialized by the caller (one interactive
// actor); the service itself holds no locks.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a ledger service over the given repository.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
