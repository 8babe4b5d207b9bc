/*

This file contains the investment lifecycle controller, the state machine
driving a single staking attempt from user input through confirmation,
submission and terminal result. One controller instance backs one open
investment flow; independent instances share nothing but the read-only pool
data and the gateway identity.

*/

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agrostake/aic/internal/gateway"
	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/metrics"
	"github.com/agrostake/aic/internal/txbuilder"
	"github.com/agrostake/aic/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig       = errors.New("invalid controller configuration")
	ErrWalletNotConnected  = errors.New("wallet is not connected")
	ErrAmountOutOfRange    = errors.New("amount is out of the pool's stake range")
	ErrPoolInactive        = errors.New("pool is not active")
	ErrOperationInProgress = errors.New("an attempt is already processing")
	ErrInvalidTransition   = errors.New("operation not allowed in current state")
)

var lifecycleLogger = logger.GetForComponent("lifecycle_controller")

// Config carries the controller's injected collaborators.
type Config struct {
	Pool    types.Pool
	Gateway gateway.SignerGateway
	Builder *txbuilder.Builder

	// Scheduler defers the success observer callbacks by SuccessNotifyDelay.
	Scheduler          Scheduler
	SuccessNotifyDelay time.Duration

	// ProcessingTimeout bounds how long an attempt may sit in Processing
	// before it fails with a network-unavailable error.
	ProcessingTimeout time.Duration
}

// Controller owns the lifecycle state for a single investment attempt.
type Controller struct {
	cfg Config

	mu         sync.Mutex
	state      types.LifecycleState
	request    types.InvestmentRequest
	result     *types.InvestmentResult
	attempt    uint64
	processing bool

	successObservers []func(types.InvestmentResult)
}

// New validates the configuration and returns a controller in the Input state.
func New(cfg Config) (*Controller, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("%w: gateway is nil", ErrInvalidConfig)
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("%w: builder is nil", ErrInvalidConfig)
	}
	if cfg.Pool.ID == "" {
		return nil, fmt.Errorf("%w: pool is empty", ErrInvalidConfig)
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.ProcessingTimeout <= 0 {
		return nil, fmt.Errorf("%w: processing timeout must be positive", ErrInvalidConfig)
	}
	if cfg.SuccessNotifyDelay < 0 {
		return nil, fmt.Errorf("%w: success notify delay cannot be negative", ErrInvalidConfig)
	}

	return &Controller{
		cfg:   cfg,
		state: types.StateInput,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() types.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the terminal result of the last attempt, or nil before any
// terminal transition.
func (c *Controller) Result() *types.InvestmentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	copied := *c.result
	return &copied
}

// Request returns the intent currently held by the controller.
func (c *Controller) Request() types.InvestmentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

// Pool returns the read-only pool this controller validates against.
func (c *Controller) Pool() types.Pool {
	return c.cfg.Pool
}

// OnSuccess registers an observer fired after every Success transition, once
// the configured notification delay has elapsed.
func (c *Controller) OnSuccess(fn func(types.InvestmentResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successObservers = append(c.successObservers, fn)
}

// Submit validates the intent against the pool and, if it passes, moves the
// flow from Input to Confirm. Validation failures are returned synchronously
// and never change lifecycle state.
func (c *Controller) Submit(request types.InvestmentRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case types.StateInput:
		// Allowed.
	case types.StateProcessing:
		return ErrOperationInProgress
	default:
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, c.state)
	}

	if !c.cfg.Gateway.IsConnected() {
		return ErrWalletNotConnected
	}

	pool := c.cfg.Pool
	if request.Amount.LessThan(pool.MinStake) {
		return fmt.Errorf("%w: amount %s is below the minimum stake %s",
			ErrAmountOutOfRange, request.Amount.String(), pool.MinStake.String())
	}
	if request.Amount.GreaterThan(pool.MaxStake) {
		return fmt.Errorf("%w: amount %s is above the maximum stake %s",
			ErrAmountOutOfRange, request.Amount.String(), pool.MaxStake.String())
	}
	if !pool.IsActive {
		return fmt.Errorf("%w: %s", ErrPoolInactive, pool.ID)
	}

	c.request = request
	c.transitionLocked(types.StateConfirm)
	return nil
}

// Back returns a reviewed-but-unconfirmed flow to Input.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != types.StateConfirm {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, c.state)
	}
	c.transitionLocked(types.StateInput)
	return nil
}

// Confirm builds a fresh descriptor for the reviewed intent and dispatches it
// to the gateway. The call registers continuations and returns immediately;
// the terminal transition arrives asynchronously. Once dispatched the attempt
// cannot be canceled, only awaited.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case types.StateConfirm:
		// Allowed.
	case types.StateProcessing:
		c.mu.Unlock()
		return ErrOperationInProgress
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, state)
	}

	descriptor, err := c.cfg.Builder.Build(c.request)
	if err != nil {
		// The request passed validation, so this is a programming error; the
		// flow stays on Confirm and the error surfaces to the caller.
		c.mu.Unlock()
		return err
	}

	c.attempt++
	attempt := c.attempt
	c.processing = true
	c.transitionLocked(types.StateProcessing)
	c.mu.Unlock()

	metrics.InFlightAttempts.Inc()
	started := time.Now()

	go c.dispatch(ctx, attempt, descriptor, started)
	return nil
}

// dispatch runs the gateway call and races it against the processing timeout.
// Whichever side loses the race is discarded by the attempt guard, so each
// attempt produces exactly one terminal transition.
func (c *Controller) dispatch(ctx context.Context, attempt uint64, descriptor types.TransactionDescriptor, started time.Time) {
	submitCtx, cancel := context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
	defer cancel()

	type outcome struct {
		res gateway.SubmitResult
		err error
	}
	results := make(chan outcome, 1)

	go func() {
		res, err := c.cfg.Gateway.SignAndSubmit(submitCtx, descriptor)
		results <- outcome{res: res, err: err}
	}()

	timeout := time.NewTimer(c.cfg.ProcessingTimeout)
	defer timeout.Stop()

	select {
	case out := <-results:
		if out.err != nil {
			c.completeFailure(attempt, gateway.Classify(out.err), started)
			return
		}
		c.completeSuccess(attempt, out.res, started)
	case <-timeout.C:
		c.completeFailure(attempt, gateway.NewError(
			gateway.ErrKindNetworkUnavailable,
			"gateway did not answer within "+c.cfg.ProcessingTimeout.String(), nil), started)
	}
}

// completeSuccess applies the terminal Success transition for the attempt.
func (c *Controller) completeSuccess(attempt uint64, res gateway.SubmitResult, started time.Time) {
	c.mu.Lock()

	if !c.attemptCurrentLocked(attempt) {
		c.mu.Unlock()
		lifecycleLogger.Warn().
			Str("txHash", res.TransactionID).
			Msg("Discarding late gateway success for a superseded attempt")
		return
	}

	result := types.InvestmentResult{
		Success:       true,
		TransactionID: res.TransactionID,
		TimestampMs:   time.Now().UnixMilli(),
		GasUsed:       res.GasUsed,
	}
	c.result = &result
	c.processing = false
	c.transitionLocked(types.StateSuccess)

	poolID := c.request.PoolID
	observers := make([]func(types.InvestmentResult), len(c.successObservers))
	copy(observers, c.successObservers)
	c.mu.Unlock()

	metrics.InFlightAttempts.Dec()
	metrics.GatewaySubmissions.WithLabelValues("success").Inc()
	metrics.ProcessingDuration.Observe(time.Since(started).Seconds())

	lifecycleLogger.Info().
		Str("txHash", result.TransactionID).
		Str("poolId", string(poolID)).
		Msg("Investment confirmed on ledger")

	// Observers fire after the configured delay so the presentation layer can
	// render the success state before any dependent refresh.
	for _, fn := range observers {
		fn := fn
		c.cfg.Scheduler.Schedule(c.cfg.SuccessNotifyDelay, func() { fn(result) })
	}
}

// completeFailure applies the terminal Failed transition for the attempt. The
// flow stays on Failed until an explicit Reset; a retry rebuilds a brand-new
// descriptor from a fresh Submit.
func (c *Controller) completeFailure(attempt uint64, gerr *gateway.Error, started time.Time) {
	c.mu.Lock()

	if !c.attemptCurrentLocked(attempt) {
		c.mu.Unlock()
		lifecycleLogger.Warn().
			Str("kind", string(gerr.Kind)).
			Msg("Discarding late gateway failure for a superseded attempt")
		return
	}

	result := types.InvestmentResult{
		Success:     false,
		TimestampMs: time.Now().UnixMilli(),
		Error:       gerr.Info(),
	}
	c.result = &result
	c.processing = false
	c.transitionLocked(types.StateFailed)
	c.mu.Unlock()

	metrics.InFlightAttempts.Dec()
	metrics.GatewaySubmissions.WithLabelValues(string(gerr.Kind)).Inc()
	metrics.ProcessingDuration.Observe(time.Since(started).Seconds())

	lifecycleLogger.Warn().
		Str("kind", string(gerr.Kind)).
		Str("message", gerr.Message).
		Msg("Investment attempt failed")
}

// Reset returns the flow to Input from any state, destroying the attempt's
// lifecycle state. A submission already dispatched to the gateway is not
// canceled; its eventual answer is discarded by the attempt guard.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.processing {
		// Supersede the in-flight attempt so its completion is dropped. The
		// in-flight gauge is settled here because the completion path won't run.
		c.attempt++
		c.processing = false
		metrics.InFlightAttempts.Dec()
	}

	c.request = types.InvestmentRequest{}
	c.result = nil
	c.transitionLocked(types.StateInput)
}

// attemptCurrentLocked reports whether a completion belongs to the attempt
// that is still in flight.
func (c *Controller) attemptCurrentLocked(attempt uint64) bool {
	return c.processing && c.attempt == attempt && c.state == types.StateProcessing
}

func (c *Controller) transitionLocked(next types.LifecycleState) {
	lifecycleLogger.Debug().
		Str("from", string(c.state)).
		Str("to", string(next)).
		Str("poolId", string(c.cfg.Pool.ID)).
		Msg("Lifecycle transition")
	c.state = next
	metrics.LifecycleTransitions.WithLabelValues(string(next)).Inc()
}
