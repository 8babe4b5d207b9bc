/*

This file contains the balance reconciliation service. It watches native
balance updates from the gateway side and keeps the derived display balances
(platform tokens, portfolio USD value) consistent with them. The conversion
rates are injected placeholder economics, not market prices, and the service
only ever reads local state, so no retry machinery is needed.

*/

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/gateway"
	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/metrics"
	"github.com/agrostake/aic/internal/types"
)

var reconcileLogger = logger.GetForComponent("balance_reconciler")

var ErrInvalidRates = errors.New("conversion rates are invalid")

// Rates are the fixed platform conversion constants.
type Rates struct {
	PlatformTokensPerNative decimal.Decimal
	USDPerPlatformToken     decimal.Decimal
}

// Reconciler derives the display balance triple from the native balance.
type Reconciler struct {
	rates Rates

	mu      sync.RWMutex
	derived types.DerivedBalance
	subs    []func(types.DerivedBalance)
}

// New validates the rates and returns a reconciler with a zero balance.
func New(rates Rates) (*Reconciler, error) {
	if !rates.PlatformTokensPerNative.IsPositive() {
		return nil, fmt.Errorf("%w: platform tokens per native must be positive", ErrInvalidRates)
	}
	if !rates.USDPerPlatformToken.IsPositive() {
		return nil, fmt.Errorf("%w: USD per platform token must be positive", ErrInvalidRates)
	}
	return &Reconciler{rates: rates}, nil
}

// Subscribe registers a callback invoked after every recomputation.
func (r *Reconciler) Subscribe(fn func(types.DerivedBalance)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// OnNativeBalance recomputes the derived balance from a fresh native reading.
// Wired as the balance poller's subscriber.
func (r *Reconciler) OnNativeBalance(native decimal.Decimal) {
	platform := native.Mul(r.rates.PlatformTokensPerNative)
	usd := platform.Mul(r.rates.USDPerPlatformToken).Round(2)

	r.mu.Lock()
	r.derived = types.DerivedBalance{
		PlatformTokenBalance: platform,
		NativeTokenBalance:   native,
		PortfolioValueUSD:    usd,
	}
	derived := r.derived
	subs := make([]func(types.DerivedBalance), len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	metrics.BalanceRecomputations.Inc()
	reconcileLogger.Debug().
		Str("native", native.String()).
		Str("platform", platform.String()).
		Str("usd", usd.String()).
		Msg("Derived balance recomputed")

	for _, fn := range subs {
		fn(derived)
	}
}

// RefreshFromGateway re-reads the native balance on demand, used after every
// successful investment so the debit is reflected without waiting for the
// next poll tick.
func (r *Reconciler) RefreshFromGateway(ctx context.Context, gw gateway.SignerGateway) error {
	native, err := gw.NativeBalance(ctx)
	if err != nil {
		reconcileLogger.Warn().Err(err).Msg("On-demand balance refresh failed")
		return err
	}
	r.OnNativeBalance(native)
	return nil
}

// Derived returns the current derived balance.
func (r *Reconciler) Derived() types.DerivedBalance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.derived
}
