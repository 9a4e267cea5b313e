// internal/service/billing/processor.go
package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rebill-service/internal/domain/ledger"
	"rebill-service/internal/domain/plan"
	"rebill-service/internal/domain/subscription"
	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/service/payment"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// persistTimeout bounds ledger and store writes after a charge completed.
// These writes get their own deadline: the run deadline must not kill an
// attempt whose charge already went through.
const persistTimeout = 15 * time.Second

type Config struct {
	BatchSize           int
	Concurrency         int
	ChargeTimeout       time.Duration
	RunTimeout          time.Duration
	EscalationThreshold int // 0 disables involuntary cancellation
}

// RunSummary accounts for every subscription considered during one cycle
// run. Considered always equals the sum of the outcome buckets.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Considered    int       `json:"considered"`
	Processed     int       `json:"processed"`
	Failed        int       `json:"failed"`
	Escalated     int       `json:"escalated_to_cancelled"`
	Indeterminate int       `json:"indeterminate"`
	Conflicts     int       `json:"conflicts"`
	Errors        int       `json:"errors"`
}

// RunEvent is published to the progress feed while a run executes.
type RunEvent struct {
	Type           string      `json:"type"`
	RunID          string      `json:"run_id"`
	SubscriptionID string      `json:"subscription_id,omitempty"`
	Outcome        string      `json:"outcome,omitempty"`
	Summary        *RunSummary `json:"summary,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// EventPublisher receives run progress events. Implementations must not
// block; the processor publishes from worker goroutines.
type EventPublisher interface {
	Publish(event RunEvent)
}

// MetricsRecorder receives attempt and run observations.
type MetricsRecorder interface {
	ObserveAttempt(outcome string)
	ObserveRun(summary *RunSummary)
}

// RunLocker is an advisory lock preventing redundant concurrent runs.
// Correctness against double charging does not depend on it; that is
// carried by the subscription store's conditional updates.
type RunLocker interface {
	Acquire(ctx context.Context) (string, error)
	Release(ctx context.Context, token string) error
}

type attemptKind int

const (
	attemptProcessed attemptKind = iota
	attemptFailed
	attemptEscalated
	attemptIndeterminate
	attemptConflict
	attemptError
)

func (k attemptKind) String() string {
	switch k {
	case attemptProcessed:
		return "processed"
	case attemptFailed:
		return "failed"
	case attemptEscalated:
		return "escalated"
	case attemptIndeterminate:
		return "indeterminate"
	case attemptConflict:
		return "conflict"
	default:
		return "error"
	}
}

// Processor drives billing cycles: it selects due subscriptions, dispatches
// bounded-concurrency charge attempts, records every attempt in the ledger
// and transitions subscription state through the conditional store update.
type Processor struct {
	cfg      Config
	subs     subscription.Repository
	plans    plan.Repository
	entries  ledger.Repository
	executor payment.ChargeExecutor
	logger   *zap.Logger

	lock    RunLocker
	events  EventPublisher
	metrics MetricsRecorder

	now func() time.Time
}

type Option func(*Processor)

func WithRunLock(lock RunLocker) Option {
	return func(p *Processor) { p.lock = lock }
}

func WithEvents(events EventPublisher) Option {
	return func(p *Processor) { p.events = events }
}

func WithMetrics(metrics MetricsRecorder) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithClock overrides the time source; used in tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(
	cfg Config,
	subs subscription.Repository,
	plans plan.Repository,
	entries ledger.Repository,
	executor payment.ChargeExecutor,
	logger *zap.Logger,
	opts ...Option,
) *Processor {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 10
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = 30 * time.Second
	}

	p := &Processor{
		cfg:      cfg,
		subs:     subs,
		plans:    plans,
		entries:  entries,
		executor: executor,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full billing cycle. Per-subscription errors never abort
// the run; only a failure to fetch due batches does. A run timeout stops
// dispatching new attempts while in-flight attempts complete, so no charge
// is ever abandoned without a recorded outcome.
func (p *Processor) Run(ctx context.Context) (*RunSummary, error) {
	if p.lock != nil {
		token, err := p.lock.Acquire(ctx)
		if err != nil {
			if xerrors.Is(err, xerrors.ErrConflict) {
				return nil, xerrors.ErrRunInProgress
			}
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := p.lock.Release(releaseCtx, token); err != nil {
				p.logger.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	runCtx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
	}
	p.publish(RunEvent{Type: "run_started", RunID: summary.RunID, Timestamp: summary.StartedAt})
	p.logger.Info("billing run started",
		zap.String("run_id", summary.RunID),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("concurrency", p.cfg.Concurrency))

	asOf := summary.StartedAt
	attempted := make(map[string]struct{})
	var mu sync.Mutex

	for runCtx.Err() == nil {
		// Failed and indeterminate subscriptions keep their billing date and
		// re-fill the head of FindDue's ordered result, so widen the fetch by
		// the number already attempted. An empty filtered batch then means the
		// due set is exhausted, not that decliners are masking it.
		limit := p.cfg.BatchSize + len(attempted)
		batch, err := p.subs.FindDue(runCtx, asOf, limit)
		if err != nil {
			// Coordinating-level failure aborts the run.
			return nil, fmt.Errorf("failed to fetch due subscriptions: %w", err)
		}

		// At most one attempt per subscription per run.
		fresh := batch[:0]
		for _, sub := range batch {
			if _, seen := attempted[sub.ID]; !seen {
				fresh = append(fresh, sub)
			}
		}
		if len(fresh) == 0 {
			break
		}
		if len(fresh) > p.cfg.BatchSize {
			fresh = fresh[:p.cfg.BatchSize]
		}

		g := new(errgroup.Group)
		g.SetLimit(p.cfg.Concurrency)
		for _, sub := range fresh {
			if runCtx.Err() != nil {
				break
			}
			attempted[sub.ID] = struct{}{}
			sub := sub
			g.Go(func() error {
				// Detached from the run deadline: in-flight attempts
				// always complete and record their outcome.
				attemptCtx := context.WithoutCancel(runCtx)
				kind := p.attempt(attemptCtx, &sub, sub.NextBillingDate)

				mu.Lock()
				summary.Considered++
				summary.add(kind)
				mu.Unlock()

				if p.metrics != nil {
					p.metrics.ObserveAttempt(kind.String())
				}
				p.publish(RunEvent{
					Type:           "attempt_completed",
					RunID:          summary.RunID,
					SubscriptionID: sub.ID,
					Outcome:        kind.String(),
					Timestamp:      p.now(),
				})
				return nil
			})
		}
		g.Wait()
	}

	summary.FinishedAt = p.now()
	if p.metrics != nil {
		p.metrics.ObserveRun(summary)
	}
	p.publish(RunEvent{Type: "run_finished", RunID: summary.RunID, Summary: summary, Timestamp: summary.FinishedAt})
	p.logger.Info("billing run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("considered", summary.Considered),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("escalated", summary.Escalated),
		zap.Int("indeterminate", summary.Indeterminate),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// BillInitial performs the synchronous first charge for a freshly created
// subscription. The billed date is the creation date, so its idempotency
// key can never collide with a later cycle charge.
func (p *Processor) BillInitial(ctx context.Context, sub *subscription.Subscription) ledger.Outcome {
	kind := p.attempt(ctx, sub, dateOnly(sub.CreatedAt))
	if p.metrics != nil {
		p.metrics.ObserveAttempt(kind.String())
	}
	switch kind {
	case attemptProcessed:
		return ledger.OutcomeSuccess
	case attemptFailed, attemptEscalated:
		return ledger.OutcomeFailed
	default:
		return ledger.OutcomePending
	}
}

// attempt runs the whole pipeline for one subscription: read plan price,
// charge with the idempotency key, append the ledger entry, decide the
// transition and conditionally update the store.
func (p *Processor) attempt(ctx context.Context, sub *subscription.Subscription, billingDate time.Time) attemptKind {
	pl, err := p.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		p.logger.Error("failed to load plan for charge attempt",
			zap.String("subscription_id", sub.ID),
			zap.Int64("plan_id", sub.PlanID),
			zap.Error(err))
		return attemptError
	}

	dateKey := ledger.DateKey(sub.ID, billingDate)
	total, failed, err := p.entries.AttemptStats(ctx, sub.ID, dateKey)
	if err != nil {
		p.logger.Error("failed to read prior attempts",
			zap.String("subscription_id", sub.ID),
			zap.Error(err))
		return attemptError
	}

	// The ledger key is unique per attempt so retried declines accumulate
	// distinct entries. The gateway key advances only past definitive
	// failures: a retry after a crash or a pending outcome reuses the key of
	// the attempt whose result is unknown, so the gateway replays instead of
	// charging twice.
	key := ledger.AttemptKey(sub.ID, billingDate, total)
	chargeKey := ledger.AttemptKey(sub.ID, billingDate, failed)

	chargeCtx, cancel := context.WithTimeout(ctx, p.cfg.ChargeTimeout)
	result, chargeErr := p.executor.Charge(chargeCtx, payment.ChargeRequest{
		SubscriptionID: sub.ID,
		Amount:         pl.Price,
		IdempotencyKey: chargeKey,
	})
	cancel()

	entry := &ledger.Entry{
		ID:             ulid.Make().String(),
		SubscriptionID: sub.ID,
		Amount:         pl.Price,
		IdempotencyKey: key,
		ProcessedAt:    p.now(),
	}

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()

	if chargeErr != nil {
		// Timeout or unknown gateway result: the charge may or may not have
		// happened. Record it as pending and leave the subscription alone;
		// the next run retries with the same idempotency key.
		entry.Outcome = ledger.OutcomePending
		entry.FailureReason = chargeErr.Error()
		if err := p.entries.Append(persistCtx, entry); err != nil && !xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			p.logger.Error("failed to record pending ledger entry",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
		}
		p.logger.Warn("charge outcome indeterminate",
			zap.String("subscription_id", sub.ID),
			zap.String("idempotency_key", key),
			zap.Error(chargeErr))
		return attemptIndeterminate
	}

	if result.Declined {
		entry.Outcome = ledger.OutcomeFailed
		entry.FailureReason = result.FailureReason
	} else {
		entry.Outcome = ledger.OutcomeSuccess
		entry.TransactionID = result.TransactionID
	}

	if err := p.entries.Append(persistCtx, entry); err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			// A concurrent run already recorded this attempt.
			p.logger.Info("skipping already-recorded attempt",
				zap.String("subscription_id", sub.ID),
				zap.String("idempotency_key", key))
			return attemptConflict
		}
		// The charge went through but we could not record it. Leave the
		// subscription untouched and surface the failure; the idempotency
		// key protects the retry from double charging.
		p.logger.Error("failed to append ledger entry after charge",
			zap.String("subscription_id", sub.ID),
			zap.String("idempotency_key", key),
			zap.Error(err))
		return attemptError
	}

	escalated := false
	if entry.Outcome == ledger.OutcomeFailed && p.cfg.EscalationThreshold > 0 {
		n, err := p.consecutiveFailures(persistCtx, sub.ID)
		if err != nil {
			p.logger.Warn("failed to count consecutive failures",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
		} else if n >= p.cfg.EscalationThreshold {
			escalated = true
		}
	}

	decision := Transition(sub.Status, entry.Outcome, billingDate, sub.NextBillingDate, pl.BillingCycle)
	if escalated {
		decision.NextStatus = subscription.StatusCancelled
	}
	if !decision.Changed {
		return attemptIndeterminate
	}

	if err := p.subs.UpdateAfterAttempt(persistCtx, sub.ID, decision.NextStatus, decision.NextBillingDate, sub.Version); err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrConflict):
			// A concurrent run won the race; its ledger entry and state
			// stand, ours stays as a record of the attempt.
			p.logger.Info("subscription changed concurrently, skipping update",
				zap.String("subscription_id", sub.ID))
			return attemptConflict
		case xerrors.Is(err, xerrors.ErrNotFound):
			p.logger.Error("subscription disappeared during attempt",
				zap.String("subscription_id", sub.ID))
			return attemptError
		default:
			p.logger.Error("failed to update subscription after attempt",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
			return attemptError
		}
	}

	switch {
	case escalated:
		p.logger.Warn("subscription escalated to cancelled",
			zap.String("subscription_id", sub.ID),
			zap.Int("threshold", p.cfg.EscalationThreshold))
		return attemptEscalated
	case entry.Outcome == ledger.OutcomeFailed:
		return attemptFailed
	default:
		return attemptProcessed
	}
}

// consecutiveFailures counts the unbroken run of failed entries at the head
// of the subscription's ledger history. Pending entries are not failures and
// break the chain.
func (p *Processor) consecutiveFailures(ctx context.Context, subscriptionID string) (int, error) {
	history, err := p.entries.History(ctx, subscriptionID, p.cfg.EscalationThreshold)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range history {
		if e.Outcome != ledger.OutcomeFailed {
			break
		}
		n++
	}
	return n, nil
}

func (s *RunSummary) add(kind attemptKind) {
	switch kind {
	case attemptProcessed:
		s.Processed++
	case attemptFailed:
		s.Failed++
	case attemptEscalated:
		s.Escalated++
	case attemptIndeterminate:
		s.Indeterminate++
	case attemptConflict:
		s.Conflicts++
	default:
		s.Errors++
	}
}

func (p *Processor) publish(event RunEvent) {
	if p.events != nil {
		p.events.Publish(event)
	}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
