package returns

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateFullYear(t *testing.T) {
	// 100 at 12.5% APY for a full year prorates back to 12.50.
	got, err := Calculate(dec("100"), dec("12.5"), dec("365"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("12.50")), "got %s", got)
}

func TestCalculateZeroDays(t *testing.T) {
	cases := []struct {
		principal string
		apy       string
	}{
		{"0", "0"},
		{"100", "12.5"},
		{"999999.99", "45"},
	}
	for _, tc := range cases {
		got, err := Calculate(dec(tc.principal), dec(tc.apy), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, got.IsZero(), "principal=%s apy=%s got %s", tc.principal, tc.apy, got)
	}
}

func TestCalculateRejectsNegativeInputs(t *testing.T) {
	_, err := Calculate(dec("-1"), dec("10"), dec("30"))
	assert.ErrorIs(t, err, ErrNegativePrincipal)

	_, err = Calculate(dec("100"), dec("-10"), dec("30"))
	assert.ErrorIs(t, err, ErrNegativeAPY)

	_, err = Calculate(dec("100"), dec("10"), dec("-30"))
	assert.ErrorIs(t, err, ErrNegativeDays)
}

func TestCalculateMonotonicInDays(t *testing.T) {
	principal := dec("2500")
	apy := dec("18.75")

	prev := decimal.Zero
	for days := int64(0); days <= 730; days += 7 {
		got, err := Calculate(principal, apy, decimal.NewFromInt(days))
		require.NoError(t, err)
		assert.True(t, got.GreaterThanOrEqual(prev), "days=%d got %s prev %s", days, got, prev)
		prev = got
	}
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	// 365 * (1/365/100) * 1 = 0.01 exactly; push just past a half cent.
	got, err := Calculate(dec("100"), dec("36.5"), dec("10.05"))
	require.NoError(t, err)
	// dailyRate = 0.001, returns = 100 * 0.001 * 10.05 = 1.005 -> 1.01 half up
	assert.True(t, got.Equal(dec("1.01")), "got %s", got)
}

func TestCalculateIsPure(t *testing.T) {
	a, err := Calculate(dec("1234.56"), dec("9.99"), dec("123"))
	require.NoError(t, err)
	b, err := Calculate(dec("1234.56"), dec("9.99"), dec("123"))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestCalculateForPool(t *testing.T) {
	// 1250 bps == 12.50% APY
	got, err := CalculateForPool(dec("100"), 1250, dec("365"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("12.50")), "got %s", got)
}
