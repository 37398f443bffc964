package visit

import (
	"context"
	"time"
)

type Repository interface {
	// Increment adds one view to the session's counter, creating it (or
	// restarting it when expired) as needed, extends its expiry to expiresAt,
	// and returns the count after the increment.
	Increment(ctx context.Context, sessionID string, expiresAt time.Time) (int, error)
	CleanupExpired(ctx context.Context) (int64, error)
}
