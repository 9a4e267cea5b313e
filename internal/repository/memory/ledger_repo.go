// internal/repository/memory/ledger_repo.go
package memory

import (
	"context"
	"strings"
	"sync"

	"rebill-service/internal/domain/ledger"
	xerrors "rebill-service/internal/pkg/errors"
)

// LedgerRepository is an in-memory append-only ledger.Repository.
type LedgerRepository struct {
	mu      sync.Mutex
	entries []ledger.Entry
	keys    map[string]struct{}

	// FailAppend forces Append to report a storage failure; used to test
	// indeterminate-outcome handling.
	FailAppend bool
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{keys: make(map[string]struct{})}
}

func (r *LedgerRepository) Append(_ context.Context, e *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAppend {
		return xerrors.ErrStorage
	}
	if _, ok := r.keys[e.IdempotencyKey]; ok {
		return xerrors.ErrDuplicateEntry
	}
	r.keys[e.IdempotencyKey] = struct{}{}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *LedgerRepository) History(_ context.Context, subscriptionID string, limit int) ([]ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []ledger.Entry{}
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.entries[i].SubscriptionID == subscriptionID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *LedgerRepository) AttemptStats(_ context.Context, subscriptionID, dateKey string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total, failed := 0, 0
	prefix := dateKey + ":"
	for _, e := range r.entries {
		if e.SubscriptionID != subscriptionID || !strings.HasPrefix(e.IdempotencyKey, prefix) {
			continue
		}
		total++
		if e.Outcome == ledger.OutcomeFailed {
			failed++
		}
	}
	return total, failed, nil
}

// All returns every entry in append order; test helper.
func (r *LedgerRepository) All() []ledger.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ledger.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
