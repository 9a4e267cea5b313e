// internal/domain/subscription/repository.go
package subscription

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id string) (*Subscription, error)

	// FindDue returns billable subscriptions with next_billing_date <= asOf,
	// oldest-due first (next_billing_date ASC, id ASC), up to limit entries.
	FindDue(ctx context.Context, asOf time.Time, limit int) ([]Subscription, error)

	// UpdateAfterAttempt is a conditional update guarded by the version read
	// with the subscription. It returns xerrors.ErrConflict when the row was
	// modified since that read (or was cancelled), xerrors.ErrNotFound when
	// the row is gone.
	UpdateAfterAttempt(ctx context.Context, id string, status Status, nextBillingDate time.Time, expectedVersion int64) error

	// Cancel is terminal and idempotent: cancelling an already-cancelled
	// subscription is a no-op success.
	Cancel(ctx context.Context, id string) error

	List(ctx context.Context, filters *ListFilters) ([]Subscription, error)
}
