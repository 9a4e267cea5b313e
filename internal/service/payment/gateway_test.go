// internal/service/payment/gateway_test.go
package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	xerrors "rebill-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRequest(key string) ChargeRequest {
	return ChargeRequest{
		SubscriptionID: "sub-1",
		Amount:         decimal.NewFromInt(10),
		IdempotencyKey: key,
	}
}

func TestChargeAlwaysSucceedsAtRateOne(t *testing.T) {
	g := NewSimulatedGateway(1.0, 0, 0, zap.NewNop())

	for i := 0; i < 20; i++ {
		res, err := g.Charge(context.Background(), testRequest(fmt.Sprintf("key-%d", i)))
		require.NoError(t, err)
		assert.False(t, res.Declined)
		assert.NotEmpty(t, res.TransactionID)
	}
}

func TestChargeAlwaysDeclinesAtRateZero(t *testing.T) {
	g := NewSimulatedGateway(0, 0, 0, zap.NewNop())

	res, err := g.Charge(context.Background(), testRequest("k1"))
	require.NoError(t, err)
	assert.True(t, res.Declined)
	assert.NotEmpty(t, res.FailureReason)
	assert.Empty(t, res.TransactionID)
}

func TestChargeReplaysRecordedResult(t *testing.T) {
	g := NewSimulatedGateway(1.0, 0, 0, zap.NewNop())

	first, err := g.Charge(context.Background(), testRequest("replay-key"))
	require.NoError(t, err)

	second, err := g.Charge(context.Background(), testRequest("replay-key"))
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID,
		"a retried key must replay the original charge, not create a new one")
}

func TestChargeRequiresIdempotencyKey(t *testing.T) {
	g := NewSimulatedGateway(1.0, 0, 0, zap.NewNop())

	_, err := g.Charge(context.Background(), testRequest(""))
	assert.Error(t, err)
}

func TestChargeAbortsOnContextCancellation(t *testing.T) {
	g := NewSimulatedGateway(1.0, time.Second, 2*time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, testRequest("timeout-key"))
	require.ErrorIs(t, err, xerrors.ErrIndeterminate)

	// The aborted attempt left no recorded result, so a retry with the same
	// key performs the charge.
	res, err := g.Charge(context.Background(), testRequest("timeout-key"))
	require.NoError(t, err)
	assert.False(t, res.Declined)
}
