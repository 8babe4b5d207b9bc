/*

This file contains the types for a single investment attempt: the user intent,
the ledger-agnostic transaction descriptor built from it, lifecycle states and
the immutable terminal result.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// InvestmentRequest is a user's staking intent, created by the presentation
// layer on submit and validated before it ever reaches the gateway.
type InvestmentRequest struct {
	PoolID                 PoolID          `json:"pool_id"`
	Amount                 decimal.Decimal `json:"amount"` // Display units
	FieldID                string          `json:"field_id"`
	CropType               string          `json:"crop_type"`
	ExpectedAPYBasisPoints int64           `json:"expected_apy_basis_points"`
}

// StakeTarget encodes the call into the ledger's staking entry point. The core
// never interprets it beyond carrying it to the gateway; only the concrete
// gateway implementation knows how to turn it into a ledger message.
type StakeTarget struct {
	PoolID         PoolID `json:"pool_id"`
	DepositAddress string `json:"deposit_address,omitempty"` // Opaque address or contract handle
	EntryPoint     string `json:"entry_point"`               // e.g., "stake"
}

// TransactionDescriptor is the ledger-agnostic payload handed to the signer
// gateway. Built fresh per attempt and never reused across attempts.
type TransactionDescriptor struct {
	SourceAmount sdkmath.Int `json:"source_amount"` // Smallest integer unit
	Target       StakeTarget `json:"target"`
	GasBudget    sdkmath.Int `json:"gas_budget"` // Smallest integer unit, fixed platform constant
}

// LifecycleState is one of the bounded states an investment attempt passes
// through. Owned exclusively by its lifecycle controller.
type LifecycleState string

const (
	StateInput      LifecycleState = "INPUT"
	StateConfirm    LifecycleState = "CONFIRM"
	StateProcessing LifecycleState = "PROCESSING"
	StateSuccess    LifecycleState = "SUCCESS"
	StateFailed     LifecycleState = "FAILED"
)

// Terminal reports whether no further automatic transitions can occur.
func (s LifecycleState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// ErrorInfo carries the classified failure reason embedded in a terminal
// InvestmentResult.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// InvestmentResult is produced exactly once per terminal transition and is
// immutable after creation.
type InvestmentResult struct {
	Success       bool            `json:"success"`
	TransactionID string          `json:"transaction_id,omitempty"`
	TimestampMs   int64           `json:"timestamp_ms,omitempty"`
	GasUsed       decimal.Decimal `json:"gas_used,omitempty"`
	Error         *ErrorInfo      `json:"error,omitempty"`
}
