// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rebill-service/internal/domain/subscription"
	xerrors "rebill-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, next_billing_date, version, cancelled_at, created_at, updated_at`

func scanSubscription(row pgx.Row, sub *subscription.Subscription) error {
	return row.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.NextBillingDate,
		&sub.Version, &sub.CancelledAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
}

// Create creates a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, status, next_billing_date, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		RETURNING created_at, updated_at
	`

	var createdAt interface{}
	if !sub.CreatedAt.IsZero() {
		createdAt = sub.CreatedAt
	}
	err := r.db.QueryRow(
		ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.NextBillingDate, sub.Version, createdAt,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindByID retrieves a subscription by ID
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = $1`, subscriptionColumns)

	var sub subscription.Subscription
	err := scanSubscription(r.db.QueryRow(ctx, query, id), &sub)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return &sub, nil
}

// FindDue returns billable subscriptions due as of the given date, oldest-due
// first with id as tie-break, bounded by limit.
func (r *SubscriptionRepository) FindDue(ctx context.Context, asOf time.Time, limit int) ([]subscription.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		WHERE status IN ($1, $2) AND next_billing_date <= $3
		ORDER BY next_billing_date ASC, id ASC
		LIMIT $4
	`, subscriptionColumns)

	rows, err := r.db.Query(ctx, query,
		subscription.StatusActive, subscription.StatusPastDue, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

// UpdateAfterAttempt conditionally updates status and next_billing_date.
// The update only applies when the stored version still matches the version
// the caller read, which serializes racing billing runs: the loser sees
// ErrConflict and must re-read and skip.
func (r *SubscriptionRepository) UpdateAfterAttempt(ctx context.Context, id string, status subscription.Status, nextBillingDate time.Time, expectedVersion int64) error {
	query := `
		UPDATE subscriptions
		SET status = $2,
		    next_billing_date = $3,
		    version = version + 1,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN COALESCE(cancelled_at, now()) ELSE cancelled_at END,
		    updated_at = now()
		WHERE id = $1 AND version = $4 AND status <> 'cancelled'
	`

	result, err := r.db.Exec(ctx, query, id, status, nextBillingDate, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check subscription existence: %w", err)
		}
		if !exists {
			return xerrors.ErrNotFound
		}
		return xerrors.ErrConflict
	}

	return nil
}

// Cancel sets the terminal cancelled status. Cancelling an already-cancelled
// subscription is a no-op success.
func (r *SubscriptionRepository) Cancel(ctx context.Context, id string) error {
	query := `
		UPDATE subscriptions
		SET status = 'cancelled',
		    cancelled_at = COALESCE(cancelled_at, now()),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND status <> 'cancelled'
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check subscription existence: %w", err)
		}
		if !exists {
			return xerrors.ErrNotFound
		}
	}

	return nil
}

// List retrieves subscriptions with optional filters, newest first
func (r *SubscriptionRepository) List(ctx context.Context, filters *subscription.ListFilters) ([]subscription.Subscription, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *filters.UserID)
		argPos++
	}

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filters.Limit
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM subscriptions
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, subscriptionColumns, whereClause, argPos, argPos+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func collectSubscriptions(rows pgx.Rows) ([]subscription.Subscription, error) {
	subs := []subscription.Subscription{}
	for rows.Next() {
		var sub subscription.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
