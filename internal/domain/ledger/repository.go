// internal/domain/ledger/repository.go
package ledger

import "context"

type Repository interface {
	// Append records a charge attempt. It returns xerrors.ErrDuplicateEntry
	// when an entry with the same idempotency key already exists, and
	// xerrors.ErrStorage on durability failure; in the latter case the
	// caller must treat the charge as indeterminate, not as failed.
	Append(ctx context.Context, e *Entry) error

	// History returns up to limit entries for a subscription, most recent
	// first.
	History(ctx context.Context, subscriptionID string, limit int) ([]Entry, error)

	// AttemptStats counts the entries whose idempotency key falls under the
	// given date key: total attempts and how many were definitive failures.
	AttemptStats(ctx context.Context, subscriptionID, dateKey string) (total, failed int, err error)
}
