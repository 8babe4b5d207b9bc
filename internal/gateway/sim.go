/*

This file contains the simulated signer gateway. It fabricates ledger results
locally so the full investment flow can run without a chain; it is also the
swappable implementation tests script failure paths through. The lifecycle
core treats it exactly like the live gateway.

*/

package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/types"
	"github.com/agrostake/aic/internal/utils"
)

var simLogger = logger.GetForComponent("sim_gateway")

var ErrSimDisconnected = errors.New("sim gateway is not connected")

// SimGateway is an in-process SignerGateway with a scriptable submit hook.
type SimGateway struct {
	mu        sync.Mutex
	connected bool
	address   string
	balance   decimal.Decimal

	scaleExponent int
	latency       time.Duration
	gasUsed       decimal.Decimal

	// SubmitHook, when set, replaces the default submit behavior entirely.
	// Tests use it to script rejections and network failures.
	SubmitHook func(ctx context.Context, descriptor types.TransactionDescriptor) (SubmitResult, error)
}

// NewSimGateway returns a connected simulated gateway holding the given
// native balance in display units.
func NewSimGateway(address string, balance decimal.Decimal, scaleExponent int) *SimGateway {
	return &SimGateway{
		connected:     true,
		address:       address,
		balance:       balance,
		scaleExponent: scaleExponent,
		gasUsed:       decimal.NewFromFloat(0.001),
	}
}

// WithLatency makes every submission take at least d, for exercising timeout
// behavior end to end.
func (g *SimGateway) WithLatency(d time.Duration) *SimGateway {
	g.latency = d
	return g
}

func (g *SimGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *SimGateway) Address() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return ""
	}
	return g.address
}

func (g *SimGateway) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return decimal.Zero, ErrSimDisconnected
	}
	return g.balance, nil
}

// SignAndSubmit fabricates a ledger result: it debits the staked amount from
// the simulated balance and mints an opaque transaction id.
func (g *SimGateway) SignAndSubmit(ctx context.Context, descriptor types.TransactionDescriptor) (SubmitResult, error) {
	if hook := g.submitHook(); hook != nil {
		return hook(ctx, descriptor)
	}

	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return SubmitResult{}, NewError(ErrKindNetworkUnavailable, "submission interrupted", ctx.Err())
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return SubmitResult{}, NewError(ErrKindUserRejected, "wallet disconnected during signing", ErrSimDisconnected)
	}

	amount, err := utils.SmallestUnitToDecimal(descriptor.SourceAmount, g.scaleExponent)
	if err != nil {
		return SubmitResult{}, NewError(ErrKindUnknown, "descriptor amount unreadable", err)
	}
	if amount.GreaterThan(g.balance) {
		return SubmitResult{}, NewError(ErrKindInsufficientFunds,
			"stake of "+amount.String()+" exceeds balance of "+g.balance.String(), nil)
	}

	g.balance = g.balance.Sub(amount)
	txID := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))

	simLogger.Debug().
		Str("txHash", txID).
		Str("poolId", string(descriptor.Target.PoolID)).
		Str("amount", amount.String()).
		Msg("Simulated submission accepted")

	return SubmitResult{TransactionID: txID, GasUsed: g.gasUsed}, nil
}

func (g *SimGateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	g.address = ""
	return nil
}

// SetBalance overrides the simulated balance, for fixtures.
func (g *SimGateway) SetBalance(balance decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = balance
}

func (g *SimGateway) submitHook() func(ctx context.Context, descriptor types.TransactionDescriptor) (SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.SubmitHook
}
