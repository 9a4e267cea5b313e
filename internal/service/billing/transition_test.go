// internal/service/billing/transition_test.go
package billing

import (
	"testing"
	"time"

	"rebill-service/internal/domain/ledger"
	"rebill-service/internal/domain/plan"
	"rebill-service/internal/domain/subscription"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransitionTable(t *testing.T) {
	billed := date(2024, time.February, 15)
	next := date(2024, time.February, 15)

	cases := []struct {
		name       string
		current    subscription.Status
		outcome    ledger.Outcome
		wantStatus subscription.Status
		wantDate   time.Time
		wantChange bool
	}{
		{
			name:       "active success advances one period",
			current:    subscription.StatusActive,
			outcome:    ledger.OutcomeSuccess,
			wantStatus: subscription.StatusActive,
			wantDate:   date(2024, time.March, 15),
			wantChange: true,
		},
		{
			name:       "active failure goes past due, date kept",
			current:    subscription.StatusActive,
			outcome:    ledger.OutcomeFailed,
			wantStatus: subscription.StatusPastDue,
			wantDate:   next,
			wantChange: true,
		},
		{
			name:       "past due success recovers to active",
			current:    subscription.StatusPastDue,
			outcome:    ledger.OutcomeSuccess,
			wantStatus: subscription.StatusActive,
			wantDate:   date(2024, time.March, 15),
			wantChange: true,
		},
		{
			name:       "past due failure stays past due",
			current:    subscription.StatusPastDue,
			outcome:    ledger.OutcomeFailed,
			wantStatus: subscription.StatusPastDue,
			wantDate:   next,
			wantChange: true,
		},
		{
			name:       "cancelled is terminal",
			current:    subscription.StatusCancelled,
			outcome:    ledger.OutcomeSuccess,
			wantStatus: subscription.StatusCancelled,
			wantDate:   next,
			wantChange: false,
		},
		{
			name:       "pending leaves everything untouched",
			current:    subscription.StatusActive,
			outcome:    ledger.OutcomePending,
			wantStatus: subscription.StatusActive,
			wantDate:   next,
			wantChange: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Transition(tc.current, tc.outcome, billed, next, plan.CycleMonthly)

			assert.Equal(t, tc.wantStatus, d.NextStatus)
			assert.True(t, tc.wantDate.Equal(d.NextBillingDate),
				"next billing date: want %s, got %s", tc.wantDate, d.NextBillingDate)
			assert.Equal(t, tc.wantChange, d.Changed)
		})
	}
}

// A delayed run must advance the schedule from the billed due date, not from
// the day the run actually happened.
func TestTransitionSuccessDoesNotDrift(t *testing.T) {
	billed := date(2024, time.February, 15) // charged on 2024-02-16, a day late

	d := Transition(subscription.StatusActive, ledger.OutcomeSuccess, billed, billed, plan.CycleMonthly)

	assert.True(t, date(2024, time.March, 15).Equal(d.NextBillingDate))
}

func TestTransitionYearlyCycle(t *testing.T) {
	billed := date(2024, time.June, 1)

	d := Transition(subscription.StatusPastDue, ledger.OutcomeSuccess, billed, billed, plan.CycleYearly)

	assert.Equal(t, subscription.StatusActive, d.NextStatus)
	assert.True(t, date(2025, time.June, 1).Equal(d.NextBillingDate))
}
