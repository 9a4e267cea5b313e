// internal/domain/ledger/entity.go
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// Entry is one charge attempt against a subscription. Entries are append
// only; the full charge history of a subscription is the ordered sequence
// of its entries. Amount is copied from the plan price at charge time and
// never recomputed.
type Entry struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	Outcome        Outcome         `json:"outcome"`
	IdempotencyKey string          `json:"idempotency_key"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	ProcessedAt    time.Time       `json:"processed_at"`
}

// DateKey identifies all charge attempts against one subscription for one
// billing date.
func DateKey(subscriptionID string, billingDate time.Time) string {
	return fmt.Sprintf("%s:%s", subscriptionID, billingDate.UTC().Format("2006-01-02"))
}

// AttemptKey derives the idempotency key for one charge attempt: the date
// key plus the attempt ordinal. A retried attempt after a crash recomputes
// the same ordinal and carries the same key, so the gateway will not produce
// a second real-world charge and the ledger will not accept a second entry.
// A fresh attempt after a recorded decline gets the next ordinal and a new
// entry, which is what lets consecutive failures accumulate.
func AttemptKey(subscriptionID string, billingDate time.Time, attempt int) string {
	return fmt.Sprintf("%s:%d", DateKey(subscriptionID, billingDate), attempt)
}
