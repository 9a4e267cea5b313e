// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"rebill-service/internal/domain/ledger"
	"rebill-service/internal/domain/plan"
	"rebill-service/internal/domain/subscription"
	"rebill-service/internal/domain/user"
	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/service/billing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// historyLimit bounds how many ledger entries are attached per subscription
// in listings.
const historyLimit = 5

// SubscriptionWithHistory is a subscription with its most recent charge
// attempts attached.
type SubscriptionWithHistory struct {
	subscription.Subscription
	History []ledger.Entry `json:"history"`
}

type SubscriptionService struct {
	subs      subscription.Repository
	plans     plan.Repository
	users     user.Repository
	entries   ledger.Repository
	processor *billing.Processor
	logger    *zap.Logger
}

func NewSubscriptionService(
	subs subscription.Repository,
	plans plan.Repository,
	users user.Repository,
	entries ledger.Repository,
	processor *billing.Processor,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs:      subs,
		plans:     plans,
		users:     users,
		entries:   entries,
		processor: processor,
		logger:    logger,
	}
}

// CreateSubscription validates the user and plan, creates an active
// subscription due one billing period from now, and runs the first charge
// synchronously. The returned subscription reflects the outcome of that
// first attempt.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, req *subscription.CreateSubscriptionRequest) (*subscription.Subscription, error) {
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", xerrors.ErrInvalidInput, req.UserID)
		}
		return nil, fmt.Errorf("failed to validate user: %w", err)
	}

	pl, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown plan %d", xerrors.ErrInvalidInput, req.PlanID)
		}
		return nil, fmt.Errorf("failed to validate plan: %w", err)
	}
	if !pl.Active {
		return nil, fmt.Errorf("%w: plan %d is not active", xerrors.ErrInvalidInput, req.PlanID)
	}

	now := timeNow().UTC()
	sub := &subscription.Subscription{
		ID:     ulid.Make().String(),
		UserID: req.UserID,
		PlanID: req.PlanID,
		Status: subscription.StatusActive,
		// First period starts at creation, next renewal one period later.
		NextBillingDate: pl.BillingCycle.AddPeriod(dateOnly(now)),
		Version:         1,
		CreatedAt:       now,
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	outcome := s.processor.BillInitial(ctx, sub)
	s.logger.Info("initial charge attempted",
		zap.String("subscription_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.String("outcome", string(outcome)))

	// Re-read so the response carries the post-charge state.
	created, err := s.subs.FindByID(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload subscription: %w", err)
	}
	return created, nil
}

// CancelSubscription is terminal and idempotent.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, id string) error {
	if err := s.subs.Cancel(ctx, id); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	s.logger.Info("subscription cancelled", zap.String("subscription_id", id))
	return nil
}

// GetSubscription returns one subscription with its recent history.
func (s *SubscriptionService) GetSubscription(ctx context.Context, id string) (*SubscriptionWithHistory, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.entries.History(ctx, sub.ID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load charge history: %w", err)
	}

	return &SubscriptionWithHistory{Subscription: *sub, History: history}, nil
}

// ListSubscriptions returns subscriptions matching the filters, each with
// its bounded recent history attached.
func (s *SubscriptionService) ListSubscriptions(ctx context.Context, filters *subscription.ListFilters) ([]SubscriptionWithHistory, error) {
	subs, err := s.subs.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]SubscriptionWithHistory, 0, len(subs))
	for _, sub := range subs {
		history, err := s.entries.History(ctx, sub.ID, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load charge history: %w", err)
		}
		out = append(out, SubscriptionWithHistory{Subscription: sub, History: history})
	}

	return out, nil
}

// timeNow is swapped out in tests.
var timeNow = time.Now

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
