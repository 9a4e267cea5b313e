// internal/repository/postgres/ledger_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"rebill-service/internal/domain/ledger"
	xerrors "rebill-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts a charge attempt record. Entries are append-only: nothing
// ever updates or deletes a row. The unique index on idempotency_key rejects
// a second record of the same attempt.
func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (
			id, subscription_id, amount, outcome,
			idempotency_key, transaction_id, failure_reason, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		ctx, query,
		e.ID, e.SubscriptionID, e.Amount, e.Outcome,
		e.IdempotencyKey, nullable(e.TransactionID), nullable(e.FailureReason), e.ProcessedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("%w: failed to append ledger entry: %v", xerrors.ErrStorage, err)
	}

	return nil
}

// History retrieves up to limit entries for a subscription, most recent
// first. Ledger ids are ULIDs, so ordering by id descending is creation
// order without a separate sequence column.
func (r *LedgerRepository) History(ctx context.Context, subscriptionID string, limit int) ([]ledger.Entry, error) {
	if limit < 1 || limit > 1000 {
		limit = 50
	}

	query := `
		SELECT id, subscription_id, amount, outcome,
		       idempotency_key, COALESCE(transaction_id, ''), COALESCE(failure_reason, ''), processed_at
		FROM ledger_entries
		WHERE subscription_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer rows.Close()

	entries := []ledger.Entry{}
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(
			&e.ID, &e.SubscriptionID, &e.Amount, &e.Outcome,
			&e.IdempotencyKey, &e.TransactionID, &e.FailureReason, &e.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AttemptStats counts the recorded attempts for one subscription and billing
// date, and how many of them were definitive failures.
func (r *LedgerRepository) AttemptStats(ctx context.Context, subscriptionID, dateKey string) (int, int, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE outcome = 'failed')
		FROM ledger_entries
		WHERE subscription_id = $1 AND idempotency_key LIKE $2 || ':%'
	`

	var total, failed int
	if err := r.db.QueryRow(ctx, query, subscriptionID, dateKey).Scan(&total, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to count ledger attempts: %w", err)
	}
	return total, failed, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
