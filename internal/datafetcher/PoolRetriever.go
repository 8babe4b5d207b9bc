/*

This file contains the read-only pool data source. Pool records come from the
external mock feed; within a single lifecycle run they are immutable, so the
store hands out copies and the controller never writes back.

*/

package datafetcher

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/types"
)

var poolLogger = logger.GetForComponent("pool_source")

var (
	ErrPoolNotFound    = errors.New("pool not found")
	ErrInvalidPoolData = errors.New("invalid pool data")
	ErrDuplicatePoolID = errors.New("duplicate pool id")
)

// PoolSource supplies pool records to the lifecycle layer. Implementations
// must return defensive copies; callers are free to hold the returned values
// across suspension points.
type PoolSource interface {
	// ListPools returns all known pools plus the source's current timestamp.
	ListPools() ([]types.Pool, time.Time, error)

	// GetPool returns the pool with the given id, or ErrPoolNotFound.
	GetPool(id types.PoolID) (types.Pool, error)
}

// StaticPoolSource is a session-scoped in-memory PoolSource seeded at startup.
// It stands in for the dashboard's mock data API.
type StaticPoolSource struct {
	mu    sync.RWMutex
	pools map[types.PoolID]types.Pool
}

// NewStaticPoolSource validates and indexes the given pool records.
func NewStaticPoolSource(pools []types.Pool) (*StaticPoolSource, error) {
	indexed := make(map[types.PoolID]types.Pool, len(pools))
	for _, pool := range pools {
		if err := validatePool(pool); err != nil {
			return nil, err
		}
		if _, exists := indexed[pool.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePoolID, pool.ID)
		}
		indexed[pool.ID] = pool
	}

	poolLogger.Info().Int("poolCount", len(indexed)).Msg("Pool source seeded")

	return &StaticPoolSource{pools: indexed}, nil
}

// ListPools returns all pools sorted by id for stable feed output.
func (s *StaticPoolSource) ListPools() ([]types.Pool, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]types.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })

	return pools, time.Now().UTC(), nil
}

// GetPool returns a copy of the pool with the given id.
func (s *StaticPoolSource) GetPool(id types.PoolID) (types.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[id]
	if !ok {
		return types.Pool{}, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return pool, nil
}

// validatePool enforces the feed schema invariants before a record is served.
func validatePool(pool types.Pool) error {
	if pool.ID == "" {
		return fmt.Errorf("%w: empty pool id", ErrInvalidPoolData)
	}
	if pool.MinStake.IsNegative() {
		return fmt.Errorf("%w: pool %s has negative min stake", ErrInvalidPoolData, pool.ID)
	}
	if pool.MinStake.GreaterThan(pool.MaxStake) {
		return fmt.Errorf("%w: pool %s min stake %s exceeds max stake %s",
			ErrInvalidPoolData, pool.ID, pool.MinStake.String(), pool.MaxStake.String())
	}
	if pool.APYBasisPoints < 0 {
		return fmt.Errorf("%w: pool %s has negative APY", ErrInvalidPoolData, pool.ID)
	}
	return nil
}

// SeedPools returns the fixture pool set used in sim mode, mirroring the
// agricultural pools the dashboard renders.
func SeedPools() []types.Pool {
	dec := decimal.RequireFromString
	harvest := time.Now().UTC().AddDate(0, 4, 0)

	return []types.Pool{
		{
			ID: "wheat-north-01", FieldID: "field-na-117", CropType: "wheat",
			APYBasisPoints: 850, MinStake: dec("10"), MaxStake: dec("10000"),
			TotalStaked: dec("48250.50"), InvestorsCount: 214,
			RiskLevel: types.RiskLow, IsActive: true, LockedUntil: harvest,
		},
		{
			ID: "soy-delta-02", FieldID: "field-sa-042", CropType: "soy",
			APYBasisPoints: 1250, MinStake: dec("25"), MaxStake: dec("50000"),
			TotalStaked: dec("131400"), InvestorsCount: 589,
			RiskLevel: types.RiskMedium, IsActive: true, LockedUntil: harvest,
		},
		{
			ID: "coffee-highland-03", FieldID: "field-af-009", CropType: "coffee",
			APYBasisPoints: 2100, MinStake: dec("100"), MaxStake: dec("25000"),
			TotalStaked: dec("74315.25"), InvestorsCount: 167,
			RiskLevel: types.RiskHigh, IsActive: true, LockedUntil: harvest.AddDate(0, 2, 0),
		},
		{
			ID: "corn-plains-04", FieldID: "field-na-201", CropType: "corn",
			APYBasisPoints: 975, MinStake: dec("10"), MaxStake: dec("15000"),
			TotalStaked: dec("22075"), InvestorsCount: 98,
			RiskLevel: types.RiskLow, IsActive: false, LockedUntil: harvest,
		},
	}
}
