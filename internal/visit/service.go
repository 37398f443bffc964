package visit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoSession = errors.New("no session")

type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Count records one view for sessionID and returns how many views the
// session had before this one.
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrNoSession
	}
	n, err := s.repo.Increment(ctx, sessionID, s.now().Add(s.ttl))
	if err != nil {
		return 0, fmt.Errorf("count visit: %w", err)
	}
	return n - 1, nil
}

// CleanupExpired drops counters whose session has lapsed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpired(ctx)
}
