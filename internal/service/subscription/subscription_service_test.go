// internal/service/subscription/subscription_service_test.go
package subscription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rebill-service/internal/domain/ledger"
	"rebill-service/internal/domain/plan"
	"rebill-service/internal/domain/subscription"
	"rebill-service/internal/domain/user"
	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/repository/memory"
	"rebill-service/internal/service/billing"
	"rebill-service/internal/service/payment"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExecutor struct {
	decline bool
}

func (e *stubExecutor) Charge(context.Context, payment.ChargeRequest) (*payment.ChargeResult, error) {
	if e.decline {
		return &payment.ChargeResult{Declined: true, FailureReason: "insufficient funds"}, nil
	}
	return &payment.ChargeResult{TransactionID: uuid.NewString()}, nil
}

type fixture struct {
	svc     *SubscriptionService
	subs    *memory.SubscriptionRepository
	entries *memory.LedgerRepository
	exec    *stubExecutor
	userID  int64
	planID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	subs := memory.NewSubscriptionRepository()
	plans := memory.NewPlanRepository()
	users := memory.NewUserRepository()
	entries := memory.NewLedgerRepository()
	exec := &stubExecutor{}

	u := &user.User{Email: "ada@example.com", Name: "Ada", Active: true}
	require.NoError(t, users.Create(context.Background(), u))

	p := &plan.Plan{
		Name:         "starter",
		Price:        decimal.RequireFromString("9.99"),
		Currency:     "USD",
		BillingCycle: plan.CycleMonthly,
		Active:       true,
	}
	require.NoError(t, plans.Create(context.Background(), p))

	processor := billing.NewProcessor(
		billing.Config{BatchSize: 10, Concurrency: 2, ChargeTimeout: time.Second, EscalationThreshold: 3},
		subs, plans, entries, exec, zap.NewNop(),
	)

	return &fixture{
		svc:     NewSubscriptionService(subs, plans, users, entries, processor, zap.NewNop()),
		subs:    subs,
		entries: entries,
		exec:    exec,
		userID:  u.ID,
		planID:  p.ID,
	}
}

func withFixedTime(t *testing.T, fixed time.Time) {
	t.Helper()

	orig := timeNow
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = orig })
}

func TestCreateSubscriptionSchedulesOnePeriodAhead(t *testing.T) {
	f := newFixture(t)
	withFixedTime(t, time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC))

	sub, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.True(t, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC).Equal(sub.NextBillingDate))

	// The initial charge ran synchronously.
	entries := f.entries.All()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, sub.ID, entries[0].SubscriptionID)
}

func TestCreateSubscriptionDeclinedInitialCharge(t *testing.T) {
	f := newFixture(t)
	f.exec.decline = true

	sub, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err, "a declined first charge is not a creation error")

	assert.Equal(t, subscription.StatusPastDue, sub.Status)

	entries := f.entries.All()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.OutcomeFailed, entries[0].Outcome)
}

func TestCreateSubscriptionRejectsUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: 999,
		PlanID: f.planID,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: 999,
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	assert.Empty(t, f.entries.All(), "validation failures must not charge anything")
}

func TestCancelSubscriptionIsIdempotent(t *testing.T) {
	f := newFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelSubscription(context.Background(), sub.ID))
	require.NoError(t, f.svc.CancelSubscription(context.Background(), sub.ID), "cancelling twice is a no-op success")

	got, err := f.svc.GetSubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)
}

func TestCancelUnknownSubscription(t *testing.T) {
	f := newFixture(t)

	err := f.svc.CancelSubscription(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestListSubscriptionsBoundsHistory(t *testing.T) {
	f := newFixture(t)

	sub, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, f.entries.Append(context.Background(), &ledger.Entry{
			ID:             ulid.Make().String(),
			SubscriptionID: sub.ID,
			Amount:         decimal.RequireFromString("9.99"),
			Outcome:        ledger.OutcomeSuccess,
			IdempotencyKey: fmt.Sprintf("%s:extra:%d", sub.ID, i),
			ProcessedAt:    time.Now().UTC(),
		}))
	}

	list, err := f.svc.ListSubscriptions(context.Background(), &subscription.ListFilters{UserID: &f.userID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].History, historyLimit)

	// Most recent first.
	assert.Equal(t, fmt.Sprintf("%s:extra:7", sub.ID), list[0].History[0].IdempotencyKey)
}

func TestListSubscriptionsFiltersByStatus(t *testing.T) {
	f := newFixture(t)

	active, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err)

	other, err := f.svc.CreateSubscription(context.Background(), &subscription.CreateSubscriptionRequest{
		UserID: f.userID,
		PlanID: f.planID,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelSubscription(context.Background(), other.ID))

	status := subscription.StatusActive
	list, err := f.svc.ListSubscriptions(context.Background(), &subscription.ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
}
