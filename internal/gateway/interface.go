package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/types"
)

// SignerGateway defines the capability surface the core requires from the
// wallet integration. This interface abstracts away the specific wallet and
// ledger SDK, allowing for different implementations (live, simulated) to be
// injected; the core never branches on which one it was given.
type SignerGateway interface {
	// IsConnected reports whether a signing identity is available.
	IsConnected() bool

	// Address returns the connected signing address, empty when disconnected.
	Address() string

	// NativeBalance returns the current native token balance in display units.
	NativeBalance(ctx context.Context) (decimal.Decimal, error)

	// SignAndSubmit signs the descriptor and submits it to the ledger. Once
	// dispatched the attempt cannot be canceled from this side; the call
	// returns only when the ledger reports success or an error.
	SignAndSubmit(ctx context.Context, descriptor types.TransactionDescriptor) (SubmitResult, error)

	// Disconnect releases the signing identity and any held connections.
	Disconnect() error
}

// SubmitResult is the gateway's answer for an accepted submission.
type SubmitResult struct {
	TransactionID string
	GasUsed       decimal.Decimal
}

// ErrorKind classifies gateway failures. The core maps every kind to a Failed
// transition but surfaces the distinguishing text to the user.
type ErrorKind string

const (
	ErrKindUserRejected       ErrorKind = "UserRejected"
	ErrKindInsufficientFunds  ErrorKind = "InsufficientFunds"
	ErrKindNetworkUnavailable ErrorKind = "NetworkUnavailable"
	ErrKindUnknown            ErrorKind = "Unknown"
)

// Error is a classified gateway failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("gateway %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a classified gateway error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Classify extracts the gateway error from err, wrapping foreign errors as
// Unknown so callers always see the taxonomy.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return &Error{Kind: ErrKindUnknown, Message: err.Error(), Cause: err}
}

// Info converts a gateway error to the result-embedded form.
func (e *Error) Info() *types.ErrorInfo {
	return &types.ErrorInfo{Kind: string(e.Kind), Message: e.Message}
}
