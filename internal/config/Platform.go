/*

Platform economics and lifecycle tuning. The conversion rates are placeholder
economic constants carried over from the product design, not live prices; they
are loaded here once so no component hard-codes them at the use site.

*/

package config

import (
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ScaleExponent is the power of ten converting display units to the
	// ledger's smallest integer unit (10^9 on the reference ledger).
	ScaleExponent int

	// GasBudget is the fixed per-attempt gas budget in smallest units. Every
	// descriptor is dimensioned identically; gas is not user-configurable and
	// not estimated per attempt.
	GasBudget uint64

	// SuccessNotifyDelay is how long the controller waits after a Success
	// transition before firing success observers, giving the presentation
	// layer time to render the terminal state first.
	SuccessNotifyDelay time.Duration

	// ProcessingTimeout bounds how long a dispatched attempt may sit in
	// Processing before it is failed with a network-unavailable error.
	ProcessingTimeout time.Duration

	// BalancePollInterval is the fixed interval for native balance refreshes.
	BalancePollInterval time.Duration

	// PlatformTokensPerNative is the fixed platform-token/native conversion.
	PlatformTokensPerNative decimal.Decimal

	// USDPerPlatformToken is the fixed USD price per platform token.
	USDPerPlatformToken decimal.Decimal

	// StakeDepositAddress is the staking entry point's deposit address on the
	// target ledger (live mode only; the sim gateway ignores it).
	StakeDepositAddress string

	// ExplorerHosts maps a network name to the block explorer host used for
	// transaction links.
	ExplorerHosts map[string]string
)

const (
	defaultScaleExponent       = 9
	defaultGasBudget           = uint64(250_000)
	defaultSuccessDelayMs      = 2000
	defaultProcessingTimeoutS  = 60
	defaultBalancePollS        = 10
	defaultPlatformPerNative   = "1000"
	defaultUSDPerPlatformToken = "1.85"
)

func loadPlatformConfig() error {
	var err error

	ScaleExponent, err = getEnvAsIntOr("AIC_SCALE_EXPONENT", defaultScaleExponent)
	if err != nil {
		return err
	}
	if ScaleExponent < 0 || ScaleExponent > 18 {
		return errors.New("AIC_SCALE_EXPONENT must be between 0 and 18")
	}

	GasBudget, err = getEnvAsUint64Or("AIC_GAS_BUDGET", defaultGasBudget)
	if err != nil {
		return err
	}
	if GasBudget == 0 {
		return errors.New("AIC_GAS_BUDGET cannot be zero")
	}

	successDelayMs, err := getEnvAsIntOr("AIC_SUCCESS_NOTIFY_DELAY_MS", defaultSuccessDelayMs)
	if err != nil {
		return err
	}
	if successDelayMs < 0 {
		return errors.New("AIC_SUCCESS_NOTIFY_DELAY_MS cannot be negative")
	}
	SuccessNotifyDelay = time.Duration(successDelayMs) * time.Millisecond

	timeoutS, err := getEnvAsIntOr("AIC_PROCESSING_TIMEOUT_S", defaultProcessingTimeoutS)
	if err != nil {
		return err
	}
	if timeoutS <= 0 {
		return errors.New("AIC_PROCESSING_TIMEOUT_S must be positive")
	}
	ProcessingTimeout = time.Duration(timeoutS) * time.Second

	pollS, err := getEnvAsIntOr("AIC_BALANCE_POLL_S", defaultBalancePollS)
	if err != nil {
		return err
	}
	if pollS <= 0 {
		return errors.New("AIC_BALANCE_POLL_S must be positive")
	}
	BalancePollInterval = time.Duration(pollS) * time.Second

	PlatformTokensPerNative, err = getEnvAsDecimalOr("AIC_PLATFORM_PER_NATIVE", defaultPlatformPerNative)
	if err != nil {
		return err
	}
	if !PlatformTokensPerNative.IsPositive() {
		return errors.New("AIC_PLATFORM_PER_NATIVE must be positive")
	}

	USDPerPlatformToken, err = getEnvAsDecimalOr("AIC_USD_PER_PLATFORM_TOKEN", defaultUSDPerPlatformToken)
	if err != nil {
		return err
	}
	if !USDPerPlatformToken.IsPositive() {
		return errors.New("AIC_USD_PER_PLATFORM_TOKEN must be positive")
	}

	StakeDepositAddress = getEnvOr("AIC_STAKE_DEPOSIT_ADDRESS", "")

	ExplorerHosts = map[string]string{
		"mainnet": getEnvOr("AIC_EXPLORER_HOST_MAINNET", "explorer.agrostake.io"),
		"testnet": getEnvOr("AIC_EXPLORER_HOST_TESTNET", "testnet.explorer.agrostake.io"),
		"devnet":  getEnvOr("AIC_EXPLORER_HOST_DEVNET", "devnet.explorer.agrostake.io"),
	}

	return nil
}

// getEnvAsDecimalOr retrieves an environment variable as a decimal with a fallback default.
func getEnvAsDecimalOr(key, fallback string) (decimal.Decimal, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		valueStr = fallback
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, errors.New("environment variable " + key + " must be a valid decimal, got: " + valueStr)
	}
	return value, nil
}
