// internal/service/billing/transition.go
package billing

import (
	"time"

	"rebill-service/internal/domain/ledger"
	"rebill-service/internal/domain/plan"
	"rebill-service/internal/domain/subscription"
)

// Decision is the result of feeding a charge outcome into the lifecycle
// state machine.
type Decision struct {
	NextStatus      subscription.Status
	NextBillingDate time.Time

	// Changed is false when the subscription must be left untouched
	// (pending outcomes, cancelled subscriptions).
	Changed bool
}

// Transition maps (current status, charge outcome) to the next status and
// billing date. It is pure: no I/O, no clock.
//
// On success the schedule advances one period from the date that was just
// billed, not from the current time, so a delayed run does not drift the
// schedule. On failure the current next billing date is kept as is, which
// leaves the subscription in the due set for the next run to retry.
func Transition(current subscription.Status, outcome ledger.Outcome, billedDate, nextBillingDate time.Time, cycle plan.BillingCycle) Decision {
	if current == subscription.StatusCancelled || outcome == ledger.OutcomePending {
		return Decision{NextStatus: current, NextBillingDate: nextBillingDate}
	}

	switch outcome {
	case ledger.OutcomeSuccess:
		return Decision{
			NextStatus:      subscription.StatusActive,
			NextBillingDate: cycle.AddPeriod(billedDate),
			Changed:         true,
		}
	case ledger.OutcomeFailed:
		return Decision{
			NextStatus:      subscription.StatusPastDue,
			NextBillingDate: nextBillingDate,
			Changed:         true,
		}
	}

	return Decision{NextStatus: current, NextBillingDate: nextBillingDate}
}
