package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RunMode selects the gateway binding: "sim" (in-process simulated ledger)
	// or "live" (real Cosmos ledger over gRPC).
	RunMode string

	// WebPort is the port the HTTP API listens on.
	WebPort string

	// Network is the target ledger network name ("mainnet", "testnet", "devnet").
	// It is passed explicitly to the gateway and the explorer link templating;
	// nothing in the core infers it from wallet identifiers.
	Network string

	// KeyringBackend is the backend for the keyring (e.g., "os", "file", "test").
	KeyringBackend string
	// KeyringDir is the path to the keyring directory.
	KeyringDir string
	// KeyName is the name of the key within the keyring to use for signing.
	KeyName string

	// ChainID is the chain ID of the target network (live mode only).
	ChainID string
	// NodeRPC is the CometBFT RPC endpoint (live mode only).
	NodeRPC string
	// NodeGRPC is the gRPC endpoint for queries and broadcasting (live mode only).
	NodeGRPC string

	// NativeDenom is the smallest-unit denomination of the native token on the
	// target ledger (live mode only).
	NativeDenom string
)

// LoadConfig loads configuration from environment variables and sets the global
// config vars. Live-mode ledger settings are only required when AIC_MODE=live.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	RunMode = getEnvOr("AIC_MODE", "sim")
	WebPort = getEnvOr("WEB_PORT", "8080")
	Network = getEnvOr("AIC_NETWORK", "testnet")

	if err := loadPlatformConfig(); err != nil {
		return err
	}

	if RunMode == "live" {
		var err error

		KeyringBackend, err = getEnv("KEYRING_BACKEND")
		if err != nil {
			return err
		}
		KeyringDir, err = getEnv("KEYRING_DIR")
		if err != nil {
			return err
		}
		KeyName, err = getEnv("KEYRING_KEY_NAME")
		if err != nil {
			return err
		}
		ChainID, err = getEnv("CHAIN_ID")
		if err != nil {
			return err
		}
		NodeRPC, err = getEnv("NODE_RPC")
		if err != nil {
			return err
		}
		NodeGRPC, err = getEnv("NODE_GRPC")
		if err != nil {
			return err
		}
		NativeDenom, err = getEnv("NATIVE_DENOM")
		if err != nil {
			return err
		}

		// Expand the tilde (~) in the keyring directory path to the user's home directory.
		if strings.HasPrefix(KeyringDir, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			KeyringDir = filepath.Join(home, KeyringDir[2:])
		}
	}

	log.Debug().
		Str("RunMode", RunMode).
		Str("Network", Network).
		Str("ChainID", ChainID).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable with a fallback default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsUint64Or retrieves an environment variable as a uint64 with a fallback default.
func getEnvAsUint64Or(key string, fallback uint64) (uint64, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsIntOr retrieves an environment variable as an int with a fallback default.
func getEnvAsIntOr(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
