// internal/domain/subscription/entity.go
package subscription

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusCancelled:
		return true
	}
	return false
}

// Billable reports whether a subscription in this status may be charged.
// PastDue subscriptions stay billable so the next cycle run retries them.
func (s Status) Billable() bool {
	return s == StatusActive || s == StatusPastDue
}

type Subscription struct {
	ID     string `json:"id"`
	UserID int64  `json:"user_id"`
	PlanID int64  `json:"plan_id"`

	Status Status `json:"status"`

	// NextBillingDate is the earliest date the subscription becomes due.
	// It only ever advances forward, one billing period at a time.
	NextBillingDate time.Time `json:"next_billing_date"`

	// Version guards conditional updates; every state transition bumps it.
	Version int64 `json:"-"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
