// internal/repository/memory/subscription_repo.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rebill-service/internal/domain/subscription"
	xerrors "rebill-service/internal/pkg/errors"
)

// SubscriptionRepository is an in-memory subscription.Repository with the
// same conditional-update semantics as the Postgres implementation.
type SubscriptionRepository struct {
	mu   sync.Mutex
	subs map[string]*subscription.Subscription
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[string]*subscription.Subscription)}
}

func (r *SubscriptionRepository) Create(_ context.Context, sub *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.ID]; ok {
		return xerrors.ErrDuplicateEntry
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *SubscriptionRepository) FindByID(_ context.Context, id string) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *SubscriptionRepository) FindDue(_ context.Context, asOf time.Time, limit int) ([]subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	due := []subscription.Subscription{}
	for _, sub := range r.subs {
		if sub.Status.Billable() && !sub.NextBillingDate.After(asOf) {
			due = append(due, *sub)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextBillingDate.Equal(due[j].NextBillingDate) {
			return due[i].NextBillingDate.Before(due[j].NextBillingDate)
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *SubscriptionRepository) UpdateAfterAttempt(_ context.Context, id string, status subscription.Status, nextBillingDate time.Time, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if sub.Version != expectedVersion || sub.Status == subscription.StatusCancelled {
		return xerrors.ErrConflict
	}

	now := time.Now().UTC()
	sub.Status = status
	sub.NextBillingDate = nextBillingDate
	sub.Version++
	sub.UpdatedAt = now
	if status == subscription.StatusCancelled && sub.CancelledAt == nil {
		sub.CancelledAt = &now
	}
	return nil
}

func (r *SubscriptionRepository) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if sub.Status == subscription.StatusCancelled {
		return nil
	}

	now := time.Now().UTC()
	sub.Status = subscription.StatusCancelled
	sub.CancelledAt = &now
	sub.Version++
	sub.UpdatedAt = now
	return nil
}

func (r *SubscriptionRepository) List(_ context.Context, filters *subscription.ListFilters) ([]subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []subscription.Subscription{}
	for _, sub := range r.subs {
		if filters != nil && filters.UserID != nil && sub.UserID != *filters.UserID {
			continue
		}
		if filters != nil && filters.Status != nil && sub.Status != *filters.Status {
			continue
		}
		out = append(out, *sub)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
