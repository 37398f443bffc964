package visit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Increment is a single upsert, so concurrent views of one session never
// lose an update.
func (r *PostgresRepo) Increment(ctx context.Context, sessionID string, expiresAt time.Time) (int, error) {
	const query = `
	INSERT INTO visit_counters (session_id, count, expires_at)
	VALUES ($1, 1, $2)
	ON CONFLICT (session_id) DO UPDATE SET
		count = CASE
			WHEN visit_counters.expires_at < now() THEN 1
			ELSE visit_counters.count + 1
		END,
		expires_at = EXCLUDED.expires_at
	RETURNING count
	`
	var n int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, sessionID, expiresAt).Scan(&n)
	return n, err
}

func (r *PostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM visit_counters WHERE expires_at < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	result, err := r.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
