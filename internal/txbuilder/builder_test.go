package txbuilder

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostake/aic/internal/types"
)

func newTestBuilder() *Builder {
	return New(9, 250_000, "agro1depositxyz")
}

func request(amount string) types.InvestmentRequest {
	return types.InvestmentRequest{
		PoolID:                 "wheat-north-01",
		Amount:                 decimal.RequireFromString(amount),
		FieldID:                "field-na-117",
		CropType:               "wheat",
		ExpectedAPYBasisPoints: 850,
	}
}

func TestBuildConvertsToSmallestUnit(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"1", "1000000000"},
		{"50", "50000000000"},
		{"0.000000001", "1"},
		{"12.345678901", "12345678901"},
		// Dust below the smallest unit is truncated, not rounded up.
		{"0.0000000019", "1"},
	}
	for _, tc := range cases {
		descriptor, err := newTestBuilder().Build(request(tc.amount))
		require.NoError(t, err, "amount=%s", tc.amount)

		want, ok := sdkmath.NewIntFromString(tc.want)
		require.True(t, ok)
		assert.True(t, descriptor.SourceAmount.Equal(want),
			"amount=%s got %s want %s", tc.amount, descriptor.SourceAmount, want)
	}
}

func TestBuildFixedDimensions(t *testing.T) {
	descriptor, err := newTestBuilder().Build(request("50"))
	require.NoError(t, err)

	assert.True(t, descriptor.GasBudget.Equal(sdkmath.NewInt(250_000)))
	assert.Equal(t, types.PoolID("wheat-north-01"), descriptor.Target.PoolID)
	assert.Equal(t, "agro1depositxyz", descriptor.Target.DepositAddress)
	assert.Equal(t, StakeEntryPoint, descriptor.Target.EntryPoint)
}

func TestBuildRejectsBadRequests(t *testing.T) {
	_, err := newTestBuilder().Build(request("-5"))
	assert.ErrorIs(t, err, ErrAmountNegative)

	anonymous := request("50")
	anonymous.PoolID = ""
	_, err = newTestBuilder().Build(anonymous)
	assert.ErrorIs(t, err, ErrMissingPoolID)
}

func TestBuildProducesFreshDescriptors(t *testing.T) {
	builder := newTestBuilder()

	first, err := builder.Build(request("50"))
	require.NoError(t, err)
	second, err := builder.Build(request("50"))
	require.NoError(t, err)

	// Equal in value but independent instances; mutating one must not leak
	// into the other.
	assert.True(t, first.SourceAmount.Equal(second.SourceAmount))
	first.Target.PoolID = "tampered"
	assert.Equal(t, types.PoolID("wheat-north-01"), second.Target.PoolID)
}
