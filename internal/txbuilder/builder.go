/*

This file contains the transaction request builder: it turns a validated
investment intent into the ledger-agnostic descriptor the gateway signs.
Descriptors are built fresh per attempt and never reused, so a retried
attempt can never alias an earlier submission.

*/

package txbuilder

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/agrostake/aic/internal/types"
	"github.com/agrostake/aic/internal/utils"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNegative = errors.New("amount is negative")
	ErrMissingPoolID  = errors.New("pool id is missing")
)

// StakeEntryPoint names the staking entry point on the target ledger.
const StakeEntryPoint = "stake"

// Builder constructs transaction descriptors with fixed platform dimensions.
// It performs no I/O and cannot fail for a request that already passed pool
// validation.
type Builder struct {
	scaleExponent  int
	gasBudget      sdkmath.Int
	depositAddress string
}

// New creates a builder. The gas budget is a platform constant so every
// attempt is dimensioned identically; it is deliberately not estimated per
// descriptor.
func New(scaleExponent int, gasBudget uint64, depositAddress string) *Builder {
	return &Builder{
		scaleExponent:  scaleExponent,
		gasBudget:      sdkmath.NewIntFromUint64(gasBudget),
		depositAddress: depositAddress,
	}
}

// Build converts the request's display-unit amount into the ledger's smallest
// integer unit and wraps it with the staking target and gas budget.
func (b *Builder) Build(request types.InvestmentRequest) (types.TransactionDescriptor, error) {
	if request.PoolID == "" {
		return types.TransactionDescriptor{}, ErrMissingPoolID
	}
	if request.Amount.IsNegative() {
		return types.TransactionDescriptor{}, fmt.Errorf("%w: %s", ErrAmountNegative, request.Amount.String())
	}

	sourceAmount, err := utils.DecimalToSmallestUnit(request.Amount, b.scaleExponent)
	if err != nil {
		return types.TransactionDescriptor{}, fmt.Errorf("amount conversion failed: %w", err)
	}

	return types.TransactionDescriptor{
		SourceAmount: sourceAmount,
		Target: types.StakeTarget{
			PoolID:         request.PoolID,
			DepositAddress: b.depositAddress,
			EntryPoint:     StakeEntryPoint,
		},
		GasBudget: b.gasBudget,
	}, nil
}
