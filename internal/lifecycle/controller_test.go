package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostake/aic/internal/format"
	"github.com/agrostake/aic/internal/gateway"
	"github.com/agrostake/aic/internal/txbuilder"
	"github.com/agrostake/aic/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func activePool() types.Pool {
	return types.Pool{
		ID:             "wheat-north-01",
		FieldID:        "field-na-117",
		CropType:       "wheat",
		APYBasisPoints: 850,
		MinStake:       dec("10"),
		MaxStake:       dec("10000"),
		IsActive:       true,
		LockedUntil:    time.Now().Add(24 * time.Hour),
	}
}

func validRequest() types.InvestmentRequest {
	return types.InvestmentRequest{
		PoolID:                 "wheat-north-01",
		Amount:                 dec("50"),
		FieldID:                "field-na-117",
		CropType:               "wheat",
		ExpectedAPYBasisPoints: 850,
	}
}

func newTestGateway() *gateway.SimGateway {
	return gateway.NewSimGateway("agro1investor", dec("1000"), 9)
}

func newTestController(t *testing.T, pool types.Pool, gw gateway.SignerGateway) *Controller {
	t.Helper()
	c, err := New(Config{
		Pool:               pool,
		Gateway:            gw,
		Builder:            txbuilder.New(9, 250_000, "agro1deposit"),
		Scheduler:          ImmediateScheduler{},
		SuccessNotifyDelay: 0,
		ProcessingTimeout:  2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func waitForTerminal(t *testing.T, c *Controller) types.LifecycleState {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State().Terminal()
	}, 3*time.Second, 5*time.Millisecond)
	return c.State()
}

func TestSubmitBelowMinimumKeepsInput(t *testing.T) {
	c := newTestController(t, activePool(), newTestGateway())

	request := validRequest()
	request.Amount = dec("5")
	err := c.Submit(request)

	require.ErrorIs(t, err, ErrAmountOutOfRange)
	assert.Contains(t, err.Error(), "minimum stake 10")
	assert.Equal(t, types.StateInput, c.State())
}

func TestSubmitAboveMaximumKeepsInput(t *testing.T) {
	c := newTestController(t, activePool(), newTestGateway())

	request := validRequest()
	request.Amount = dec("10000.01")
	err := c.Submit(request)

	require.ErrorIs(t, err, ErrAmountOutOfRange)
	assert.Contains(t, err.Error(), "maximum stake 10000")
	assert.Equal(t, types.StateInput, c.State())
}

func TestSubmitBoundsAreInclusive(t *testing.T) {
	for _, amount := range []string{"10", "10000"} {
		c := newTestController(t, activePool(), newTestGateway())
		request := validRequest()
		request.Amount = dec(amount)
		require.NoError(t, c.Submit(request), "amount=%s", amount)
		assert.Equal(t, types.StateConfirm, c.State())
	}
}

func TestSubmitRequiresConnectedWallet(t *testing.T) {
	gw := newTestGateway()
	require.NoError(t, gw.Disconnect())
	c := newTestController(t, activePool(), gw)

	err := c.Submit(validRequest())
	require.ErrorIs(t, err, ErrWalletNotConnected)
	assert.Equal(t, types.StateInput, c.State())
}

func TestSubmitRejectsInactivePool(t *testing.T) {
	pool := activePool()
	pool.IsActive = false
	c := newTestController(t, pool, newTestGateway())

	err := c.Submit(validRequest())
	require.ErrorIs(t, err, ErrPoolInactive)
	assert.Equal(t, types.StateInput, c.State())
}

func TestBackReturnsToInput(t *testing.T) {
	c := newTestController(t, activePool(), newTestGateway())

	require.NoError(t, c.Submit(validRequest()))
	require.Equal(t, types.StateConfirm, c.State())
	require.NoError(t, c.Back())
	assert.Equal(t, types.StateInput, c.State())

	// Back is only valid from Confirm.
	assert.ErrorIs(t, c.Back(), ErrInvalidTransition)
}

func TestEndToEndSuccess(t *testing.T) {
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		return gateway.SubmitResult{TransactionID: "abc123xyz", GasUsed: dec("0.001")}, nil
	}
	c := newTestController(t, activePool(), gw)

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, types.StateSuccess, waitForTerminal(t, c))

	result := c.Result()
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "abc123xyz", result.TransactionID)
	assert.True(t, result.GasUsed.Equal(dec("0.001")))
	assert.NotZero(t, result.TimestampMs)
	assert.Nil(t, result.Error)

	// Short ids render unchanged.
	assert.Equal(t, "abc123xyz", format.Shorten(result.TransactionID))
}

func TestGatewayRejectionReachesFailedAndStays(t *testing.T) {
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		return gateway.SubmitResult{}, gateway.NewError(gateway.ErrKindUserRejected, "declined in wallet", nil)
	}
	c := newTestController(t, activePool(), gw)

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, types.StateFailed, waitForTerminal(t, c))

	result := c.Result()
	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "UserRejected", result.Error.Kind)

	// Failed is terminal until an explicit reset.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, types.StateFailed, c.State())

	c.Reset()
	assert.Equal(t, types.StateInput, c.State())
	assert.Nil(t, c.Result())
}

func TestRetryBuildsFreshDescriptor(t *testing.T) {
	var descriptors []types.TransactionDescriptor
	failFirst := true

	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		descriptors = append(descriptors, d)
		if failFirst {
			failFirst = false
			return gateway.SubmitResult{}, gateway.NewError(gateway.ErrKindNetworkUnavailable, "node down", nil)
		}
		return gateway.SubmitResult{TransactionID: "retry-ok", GasUsed: dec("0.001")}, nil
	}
	c := newTestController(t, activePool(), gw)

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, types.StateFailed, waitForTerminal(t, c))

	c.Reset()
	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, types.StateSuccess, waitForTerminal(t, c))

	// Two attempts, two independently built descriptors.
	require.Len(t, descriptors, 2)
	assert.True(t, descriptors[0].SourceAmount.Equal(descriptors[1].SourceAmount))
}

func TestSubmitWhileProcessingIsRejected(t *testing.T) {
	release := make(chan struct{})
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		<-release
		return gateway.SubmitResult{TransactionID: "held-then-ok", GasUsed: dec("0.001")}, nil
	}
	c := newTestController(t, activePool(), gw)

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, types.StateProcessing, c.State())

	// A second submit while in flight is rejected without touching the attempt.
	err := c.Submit(validRequest())
	require.ErrorIs(t, err, ErrOperationInProgress)
	assert.Equal(t, types.StateProcessing, c.State())

	// So is a second confirm.
	assert.ErrorIs(t, c.Confirm(context.Background()), ErrOperationInProgress)

	close(release)
	assert.Equal(t, types.StateSuccess, waitForTerminal(t, c))
	assert.Equal(t, "held-then-ok", c.Result().TransactionID)
}

func TestExactlyOneSuccessTransitionAndObservation(t *testing.T) {
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		return gateway.SubmitResult{TransactionID: "once", GasUsed: dec("0.001")}, nil
	}
	c := newTestController(t, activePool(), gw)

	var observations int32
	c.OnSuccess(func(result types.InvestmentResult) {
		atomic.AddInt32(&observations, 1)
		assert.Equal(t, "once", result.TransactionID)
	})

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, types.StateSuccess, waitForTerminal(t, c))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&observations))
}

func TestProcessingTimeoutFailsWithNetworkUnavailable(t *testing.T) {
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		<-ctx.Done()
		return gateway.SubmitResult{}, gateway.NewError(gateway.ErrKindNetworkUnavailable, "interrupted", ctx.Err())
	}

	c, err := New(Config{
		Pool:               activePool(),
		Gateway:            gw,
		Builder:            txbuilder.New(9, 250_000, "agro1deposit"),
		Scheduler:          ImmediateScheduler{},
		SuccessNotifyDelay: 0,
		ProcessingTimeout:  30 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))

	assert.Equal(t, types.StateFailed, waitForTerminal(t, c))
	result := c.Result()
	require.NotNil(t, result)
	require.NotNil(t, result.Error)
	assert.Equal(t, "NetworkUnavailable", result.Error.Kind)
}

func TestLateGatewayReplyAfterResetIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		<-release
		return gateway.SubmitResult{TransactionID: "too-late", GasUsed: dec("0.001")}, nil
	}
	c := newTestController(t, activePool(), gw)

	var observations int32
	c.OnSuccess(func(types.InvestmentResult) { atomic.AddInt32(&observations, 1) })

	require.NoError(t, c.Submit(validRequest()))
	require.NoError(t, c.Confirm(context.Background()))
	require.Equal(t, types.StateProcessing, c.State())

	c.Reset()
	require.Equal(t, types.StateInput, c.State())

	close(release)
	time.Sleep(50 * time.Millisecond)

	// The superseded attempt's answer must not resurface.
	assert.Equal(t, types.StateInput, c.State())
	assert.Nil(t, c.Result())
	assert.Equal(t, int32(0), atomic.LoadInt32(&observations))
}

func TestIndependentControllersDoNotInterfere(t *testing.T) {
	gw := newTestGateway()
	gw.SubmitHook = func(ctx context.Context, d types.TransactionDescriptor) (gateway.SubmitResult, error) {
		return gateway.SubmitResult{TransactionID: "tx-" + string(d.Target.PoolID), GasUsed: dec("0.001")}, nil
	}

	soy := activePool()
	soy.ID = "soy-delta-02"

	first := newTestController(t, activePool(), gw)
	second := newTestController(t, soy, gw)

	require.NoError(t, first.Submit(validRequest()))

	soyRequest := validRequest()
	soyRequest.PoolID = "soy-delta-02"
	require.NoError(t, second.Submit(soyRequest))

	require.NoError(t, first.Confirm(context.Background()))
	require.NoError(t, second.Confirm(context.Background()))

	require.Equal(t, types.StateSuccess, waitForTerminal(t, first))
	require.Equal(t, types.StateSuccess, waitForTerminal(t, second))

	assert.Equal(t, "tx-wheat-north-01", first.Result().TransactionID)
	assert.Equal(t, "tx-soy-delta-02", second.Result().TransactionID)
}
