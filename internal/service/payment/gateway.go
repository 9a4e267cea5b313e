// internal/service/payment/gateway.go
package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	xerrors "rebill-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChargeRequest is a single charge attempt against the external payment
// capability. The idempotency key identifies the attempt across retries:
// charging the same key twice must not produce a second real-world charge.
type ChargeRequest struct {
	SubscriptionID string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// ChargeResult is the affirmative answer from the gateway. A nil error with
// Declined=true means the gateway explicitly refused the charge; any error
// (including a timeout) means the outcome is unknown and must be treated as
// indeterminate by the caller, never as a failure.
type ChargeResult struct {
	Declined      bool
	TransactionID string
	FailureReason string
}

type ChargeExecutor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// SimulatedGateway stands in for a real payment provider. It replays the
// recorded result when it sees an idempotency key again, so retried attempts
// observe the original outcome instead of rolling new dice.
type SimulatedGateway struct {
	successRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	rng  *rand.Rand
	seen map[string]*ChargeResult
}

var failureReasons = []string{
	"insufficient funds",
	"card declined",
	"payment method expired",
	"billing address mismatch",
	"risk assessment failed",
}

func NewSimulatedGateway(successRate float64, minLatency, maxLatency time.Duration, logger *zap.Logger) *SimulatedGateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedGateway{
		successRate: successRate,
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		seen:        make(map[string]*ChargeResult),
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("missing idempotency key")
	}

	g.mu.Lock()
	if prev, ok := g.seen[req.IdempotencyKey]; ok {
		g.mu.Unlock()
		g.logger.Debug("replaying charge result for idempotency key",
			zap.String("idempotency_key", req.IdempotencyKey))
		cp := *prev
		return &cp, nil
	}
	latency := g.minLatency
	if g.maxLatency > g.minLatency {
		latency += time.Duration(g.rng.Int63n(int64(g.maxLatency - g.minLatency)))
	}
	succeeded := g.rng.Float64() < g.successRate
	reason := failureReasons[g.rng.Intn(len(failureReasons))]
	g.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		// The provider may or may not have processed the charge.
		return nil, fmt.Errorf("%w: gateway call aborted: %w", xerrors.ErrIndeterminate, ctx.Err())
	}

	result := &ChargeResult{}
	if succeeded {
		result.TransactionID = uuid.NewString()
	} else {
		result.Declined = true
		result.FailureReason = reason
	}

	g.mu.Lock()
	g.seen[req.IdempotencyKey] = result
	g.mu.Unlock()

	if result.Declined {
		g.logger.Warn("charge declined",
			zap.String("subscription_id", req.SubscriptionID),
			zap.String("amount", req.Amount.String()),
			zap.String("reason", result.FailureReason))
	} else {
		g.logger.Info("charge succeeded",
			zap.String("subscription_id", req.SubscriptionID),
			zap.String("amount", req.Amount.String()),
			zap.String("transaction_id", result.TransactionID))
	}

	cp := *result
	return &cp, nil
}
