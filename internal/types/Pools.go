/*

This is a custom type for investment pools which contains all the state needed
for validating and pricing a staking attempt against a pool.

*/

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PoolID string

// RiskLevel classifies a pool's volatility bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Pool is a staking target with fixed economic parameters. Pools are supplied
// by the external data feed and are read-only for the duration of one
// investment lifecycle run.
type Pool struct {
	ID              PoolID          `json:"pool_id"`           // e.g., "wheat-north-01"
	FieldID         string          `json:"field_id"`          // Backing field the pool is attached to
	CropType        string          `json:"crop_type"`         // e.g., "wheat", "soy", "coffee"
	APYBasisPoints  int64           `json:"apy_basis_points"`  // 1250 = 12.50% APY
	MinStake        decimal.Decimal `json:"min_stake"`         // Display units
	MaxStake        decimal.Decimal `json:"max_stake"`         // Display units, MinStake <= MaxStake
	TotalStaked     decimal.Decimal `json:"total_staked"`      // Display units
	InvestorsCount  int             `json:"investors_count"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	IsActive        bool            `json:"is_active"`
	LockedUntil     time.Time       `json:"locked_until"`
}

// APYPercent returns the pool APY as a percentage value (1250 bps -> 12.50).
func (p Pool) APYPercent() decimal.Decimal {
	return decimal.NewFromInt(p.APYBasisPoints).Div(decimal.NewFromInt(100))
}
