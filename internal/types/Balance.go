package types

import (
	"github.com/shopspring/decimal"
)

// Network identifies the target ledger network, used for explorer links and
// gateway configuration. Supplied explicitly at connect time; the core never
// infers it from wallet identifiers.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)

// DerivedBalance is the display-facing balance triple recomputed by the
// reconciliation service whenever the native balance changes. Conversion
// rates are injected configuration, not live prices.
type DerivedBalance struct {
	PlatformTokenBalance decimal.Decimal `json:"platform_token_balance"`
	NativeTokenBalance   decimal.Decimal `json:"native_token_balance"`
	PortfolioValueUSD    decimal.Decimal `json:"portfolio_value_usd"`
}
