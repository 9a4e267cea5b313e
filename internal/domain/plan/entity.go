// internal/domain/plan/entity.go
package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillingCycle string

const (
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the billing cycle is a known value.
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleWeekly, CycleMonthly, CycleYearly:
		return true
	}
	return false
}

// AddPeriod advances t by one billing period using calendar arithmetic.
// Advancing is always relative to the previous billing date, not "now",
// so a delayed run does not drift the schedule.
func (c BillingCycle) AddPeriod(t time.Time) time.Time {
	switch c {
	case CycleWeekly:
		return t.AddDate(0, 0, 7)
	case CycleYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// Plan is a billable subscription plan. Price and cycle are immutable once
// created; price changes are modelled as a new plan so historical ledger
// entries keep the amount they were charged at.
type Plan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	BillingCycle BillingCycle    `json:"billing_cycle"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}
