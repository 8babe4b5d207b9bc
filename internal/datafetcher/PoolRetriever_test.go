package datafetcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrostake/aic/internal/types"
)

func testPool(id string) types.Pool {
	return types.Pool{
		ID:             types.PoolID(id),
		FieldID:        "field-1",
		CropType:       "wheat",
		APYBasisPoints: 1250,
		MinStake:       decimal.NewFromInt(10),
		MaxStake:       decimal.NewFromInt(10000),
		IsActive:       true,
		LockedUntil:    time.Now().Add(24 * time.Hour),
	}
}

func TestStaticPoolSourceLookup(t *testing.T) {
	source, err := NewStaticPoolSource([]types.Pool{testPool("a"), testPool("b")})
	require.NoError(t, err)

	pool, err := source.GetPool("a")
	require.NoError(t, err)
	assert.Equal(t, types.PoolID("a"), pool.ID)

	_, err = source.GetPool("missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestStaticPoolSourceListSorted(t *testing.T) {
	source, err := NewStaticPoolSource([]types.Pool{testPool("b"), testPool("a"), testPool("c")})
	require.NoError(t, err)

	pools, fetchedAt, err := source.ListPools()
	require.NoError(t, err)
	require.Len(t, pools, 3)
	assert.Equal(t, types.PoolID("a"), pools[0].ID)
	assert.Equal(t, types.PoolID("b"), pools[1].ID)
	assert.Equal(t, types.PoolID("c"), pools[2].ID)
	assert.WithinDuration(t, time.Now().UTC(), fetchedAt, time.Minute)
}

func TestStaticPoolSourceRejectsBadRecords(t *testing.T) {
	inverted := testPool("a")
	inverted.MinStake = decimal.NewFromInt(500)
	inverted.MaxStake = decimal.NewFromInt(5)
	_, err := NewStaticPoolSource([]types.Pool{inverted})
	assert.ErrorIs(t, err, ErrInvalidPoolData)

	_, err = NewStaticPoolSource([]types.Pool{testPool("a"), testPool("a")})
	assert.ErrorIs(t, err, ErrDuplicatePoolID)

	anonymous := testPool("")
	_, err = NewStaticPoolSource([]types.Pool{anonymous})
	assert.ErrorIs(t, err, ErrInvalidPoolData)
}

func TestStaticPoolSourceHandsOutCopies(t *testing.T) {
	source, err := NewStaticPoolSource([]types.Pool{testPool("a")})
	require.NoError(t, err)

	pool, err := source.GetPool("a")
	require.NoError(t, err)
	pool.IsActive = false
	pool.MinStake = decimal.NewFromInt(999)

	again, err := source.GetPool("a")
	require.NoError(t, err)
	assert.True(t, again.IsActive)
	assert.True(t, again.MinStake.Equal(decimal.NewFromInt(10)))
}

func TestSeedPoolsAreValid(t *testing.T) {
	_, err := NewStaticPoolSource(SeedPools())
	require.NoError(t, err)
}
