package gateway

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostake/aic/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func descriptor(amount string) types.TransactionDescriptor {
	value, ok := sdkmath.NewIntFromString(amount)
	if !ok {
		panic("bad amount " + amount)
	}
	return types.TransactionDescriptor{
		SourceAmount: value,
		Target: types.StakeTarget{
			PoolID:         "wheat-north-01",
			DepositAddress: "agro1deposit",
			EntryPoint:     "stake",
		},
		GasBudget: sdkmath.NewInt(250_000),
	}
}

func TestSimGatewayDebitsBalanceOnSubmit(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("100"), 9)

	// 50 display units at scale 10^9.
	res, err := gw.SignAndSubmit(context.Background(), descriptor("50000000000"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.TransactionID)
	assert.True(t, res.GasUsed.IsPositive())

	balance, err := gw.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("50")), "balance=%s", balance)
}

func TestSimGatewayInsufficientFunds(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("10"), 9)

	_, err := gw.SignAndSubmit(context.Background(), descriptor("50000000000"))
	gerr := Classify(err)
	require.NotNil(t, gerr)
	assert.Equal(t, ErrKindInsufficientFunds, gerr.Kind)

	// Failed submission must not debit anything.
	balance, err := gw.NativeBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")))
}

func TestSimGatewayDisconnect(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("10"), 9)
	require.True(t, gw.IsConnected())
	require.Equal(t, "agro1investor", gw.Address())

	require.NoError(t, gw.Disconnect())
	assert.False(t, gw.IsConnected())
	assert.Empty(t, gw.Address())

	_, err := gw.NativeBalance(context.Background())
	assert.ErrorIs(t, err, ErrSimDisconnected)
}

func TestClassifyWrapsForeignErrors(t *testing.T) {
	gerr := Classify(assert.AnError)
	require.NotNil(t, gerr)
	assert.Equal(t, ErrKindUnknown, gerr.Kind)
	assert.ErrorIs(t, gerr, assert.AnError)

	typed := NewError(ErrKindUserRejected, "declined", nil)
	assert.Equal(t, ErrKindUserRejected, Classify(typed).Kind)
	assert.Nil(t, Classify(nil))
}

func TestErrorInfoCarriesKind(t *testing.T) {
	info := NewError(ErrKindNetworkUnavailable, "node unreachable", nil).Info()
	assert.Equal(t, "NetworkUnavailable", info.Kind)
	assert.Equal(t, "node unreachable", info.Message)
}
