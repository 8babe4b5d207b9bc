package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	cryptocodec "github.com/cosmos/cosmos-sdk/crypto/codec"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/agrostake/aic/internal/config"
	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/types"
	"github.com/agrostake/aic/internal/utils"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrKeyringInit           = errors.New("keyring initialization failed")
	ErrKeyNotFound           = errors.New("signing key not found")
	ErrRPCConnectionFailed   = errors.New("RPC connection failed")
	ErrGRPCConnectionInvalid = errors.New("gRPC connection is invalid")
	ErrClientContextInvalid  = errors.New("client context is invalid")
	ErrSDKConfigFailed       = errors.New("SDK configuration failed")
	ErrInvalidDescriptor     = errors.New("transaction descriptor is invalid")
)

var liveLogger = logger.GetForComponent("live_gateway")

// Thread-safe SDK configuration using sync.Once
var sdkConfigOnce sync.Once
var sdkConfigError error

const confirmPollInterval = 2 * time.Second

// LiveGateway is the SignerGateway bound to a real Cosmos ledger. It signs
// descriptors with a local keyring and broadcasts over the node's RPC, then
// waits for the transaction to land before reporting back.
type LiveGateway struct {
	clientCtx   client.Context
	txFactory   tx.Factory
	keyring     keyring.Keyring
	grpcConn    *grpc.ClientConn
	bankClient  banktypes.QueryClient
	chainID     string
	keyName     string
	fromAddress sdk.AccAddress

	mu        sync.Mutex
	connected bool
}

// NewLiveGateway creates a live gateway over the given gRPC connection. The
// connection is owned by the caller and released on Disconnect.
func NewLiveGateway(grpcConn *grpc.ClientConn) (*LiveGateway, error) {
	if grpcConn == nil {
		return nil, errors.Join(ErrGRPCConnectionInvalid, errors.New("gRPC connection cannot be nil"))
	}

	if err := validateLedgerConfig(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	if err := configureSDK(); err != nil {
		return nil, errors.Join(ErrSDKConfigFailed, err)
	}

	encoding := makeEncodingConfig()

	kr, err := initializeKeyring(encoding.codec)
	if err != nil {
		return nil, errors.Join(ErrKeyringInit, err)
	}

	fromAddress, err := getAndValidateKey(kr)
	if err != nil {
		return nil, errors.Join(ErrKeyNotFound, err)
	}

	rpcClient, err := rpchttp.New(config.NodeRPC, "/websocket")
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, err)
	}

	clientCtx := client.Context{}.
		WithCodec(encoding.codec).
		WithInterfaceRegistry(encoding.registry).
		WithTxConfig(encoding.txConfig).
		WithInput(os.Stdin).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync).
		WithHomeDir(config.KeyringDir).
		WithKeyring(kr).
		WithChainID(config.ChainID).
		WithGRPCClient(grpcConn).
		WithClient(rpcClient).
		WithFromAddress(fromAddress).
		WithFromName(config.KeyName)

	if err := validateClientContext(clientCtx); err != nil {
		return nil, errors.Join(ErrClientContextInvalid, err)
	}

	txFactory := tx.Factory{}.
		WithChainID(config.ChainID).
		WithKeybase(kr).
		WithGas(config.GasBudget).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT).
		WithAccountRetriever(clientCtx.AccountRetriever).
		WithTxConfig(clientCtx.TxConfig)

	gw := &LiveGateway{
		clientCtx:   clientCtx,
		txFactory:   txFactory,
		keyring:     kr,
		grpcConn:    grpcConn,
		bankClient:  banktypes.NewQueryClient(grpcConn),
		chainID:     config.ChainID,
		keyName:     config.KeyName,
		fromAddress: fromAddress,
		connected:   true,
	}

	liveLogger.Info().
		Str("address", fromAddress.String()).
		Str("keyName", config.KeyName).
		Str("chainID", config.ChainID).
		Str("rpcEndpoint", config.NodeRPC).
		Msg("Live gateway initialized")

	return gw, nil
}

type encodingConfig struct {
	registry codectypes.InterfaceRegistry
	codec    codec.Codec
	txConfig client.TxConfig
}

func makeEncodingConfig() encodingConfig {
	registry := codectypes.NewInterfaceRegistry()
	authtypes.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)
	cryptocodec.RegisterInterfaces(registry)

	cdc := codec.NewProtoCodec(registry)
	txConfig := authtx.NewTxConfig(cdc, authtx.DefaultSignModes)

	return encodingConfig{registry: registry, codec: cdc, txConfig: txConfig}
}

// configureSDK sets the bech32 prefixes once globally.
func configureSDK() error {
	sdkConfigOnce.Do(func() {
		sdkConfig := sdk.GetConfig()
		if sdkConfig == nil {
			sdkConfigError = errors.New("failed to get SDK config")
			return
		}
		sdkConfig.SetBech32PrefixForAccount("agro", "agropub")
		sdkConfig.SetBech32PrefixForValidator("agrovaloper", "agrovaloperpub")
		sdkConfig.SetBech32PrefixForConsensusNode("agrovalcons", "agrovalconspub")
		sdkConfig.Seal()
	})
	return sdkConfigError
}

func validateLedgerConfig() error {
	if config.ChainID == "" {
		return errors.New("chain ID cannot be empty")
	}
	if config.KeyName == "" {
		return errors.New("key name cannot be empty")
	}
	if config.KeyringDir == "" {
		return errors.New("keyring directory cannot be empty")
	}
	if config.KeyringBackend == "" {
		return errors.New("keyring backend cannot be empty")
	}
	if config.NodeRPC == "" {
		return errors.New("node RPC endpoint cannot be empty")
	}
	if config.NativeDenom == "" {
		return errors.New("native denom cannot be empty")
	}
	if config.StakeDepositAddress == "" {
		return errors.New("stake deposit address cannot be empty")
	}
	if config.GasBudget == 0 {
		return errors.New("gas budget cannot be zero")
	}
	return nil
}

func initializeKeyring(cdc codec.Codec) (keyring.Keyring, error) {
	if err := os.MkdirAll(config.KeyringDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create keyring directory: %w", err)
	}

	kr, err := keyring.New("agrostake", config.KeyringBackend, config.KeyringDir, os.Stdin, cdc)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyring: %w", err)
	}
	if kr == nil {
		return nil, errors.New("keyring creation returned nil")
	}
	return kr, nil
}

func getAndValidateKey(kr keyring.Keyring) (sdk.AccAddress, error) {
	keyInfo, err := kr.Key(config.KeyName)
	if err != nil {
		return nil, fmt.Errorf("key '%s' not found in keyring: %w", config.KeyName, err)
	}
	if keyInfo == nil {
		return nil, fmt.Errorf("key info for '%s' is nil", config.KeyName)
	}

	fromAddress, err := keyInfo.GetAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to get address from key: %w", err)
	}
	if len(fromAddress) == 0 {
		return nil, errors.New("address is empty")
	}
	if err := sdk.VerifyAddressFormat(fromAddress); err != nil {
		return nil, fmt.Errorf("invalid address format: %w", err)
	}

	return fromAddress, nil
}

func validateClientContext(clientCtx client.Context) error {
	if clientCtx.Codec == nil {
		return errors.New("codec is nil in client context")
	}
	if clientCtx.TxConfig == nil {
		return errors.New("tx config is nil in client context")
	}
	if clientCtx.Keyring == nil {
		return errors.New("keyring is nil in client context")
	}
	if clientCtx.ChainID == "" {
		return errors.New("chain ID is empty in client context")
	}
	if len(clientCtx.FromAddress) == 0 {
		return errors.New("from address is empty in client context")
	}
	return nil
}

func (g *LiveGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *LiveGateway) Address() string {
	if !g.IsConnected() {
		return ""
	}
	return g.fromAddress.String()
}

// NativeBalance queries the bank module for the signing account's balance in
// the native denom, converted to display units.
func (g *LiveGateway) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	if !g.IsConnected() {
		return decimal.Zero, NewError(ErrKindNetworkUnavailable, "gateway disconnected", nil)
	}

	res, err := g.bankClient.Balance(ctx, &banktypes.QueryBalanceRequest{
		Address: g.fromAddress.String(),
		Denom:   config.NativeDenom,
	})
	if err != nil {
		return decimal.Zero, NewError(ErrKindNetworkUnavailable, "balance query failed", err)
	}
	if res == nil || res.Balance == nil {
		return decimal.Zero, NewError(ErrKindUnknown, "balance query returned no coin", nil)
	}

	balance, err := utils.SmallestUnitToDecimal(res.Balance.Amount, config.ScaleExponent)
	if err != nil {
		return decimal.Zero, NewError(ErrKindUnknown, "balance conversion failed", err)
	}
	return balance, nil
}

// SignAndSubmit turns the descriptor into a transfer to the staking entry
// point, signs it, broadcasts it and waits for the transaction to land. The
// gas budget comes from the descriptor as-is; every attempt is dimensioned
// identically and nothing is estimated per call.
func (g *LiveGateway) SignAndSubmit(ctx context.Context, descriptor types.TransactionDescriptor) (SubmitResult, error) {
	if !g.IsConnected() {
		return SubmitResult{}, NewError(ErrKindNetworkUnavailable, "gateway disconnected", nil)
	}
	if err := validateDescriptor(descriptor); err != nil {
		return SubmitResult{}, NewError(ErrKindUnknown, err.Error(), err)
	}

	liveLogger.Info().
		Str("poolId", string(descriptor.Target.PoolID)).
		Str("amount", descriptor.SourceAmount.String()).
		Msg("Signing and submitting staking transaction")

	account, err := g.clientCtx.AccountRetriever.GetAccount(g.clientCtx, g.fromAddress)
	if err != nil {
		return SubmitResult{}, NewError(ErrKindNetworkUnavailable, "account lookup failed", err)
	}
	if account == nil {
		return SubmitResult{}, NewError(ErrKindUnknown, "account is nil", nil)
	}

	depositAddress, err := sdk.AccAddressFromBech32(descriptor.Target.DepositAddress)
	if err != nil {
		return SubmitResult{}, NewError(ErrKindUnknown, "staking entry point address is invalid", err)
	}

	msg := banktypes.NewMsgSend(
		g.fromAddress,
		depositAddress,
		sdk.NewCoins(sdk.NewCoin(config.NativeDenom, descriptor.SourceAmount)),
	)
	if validator, ok := any(msg).(interface{ ValidateBasic() error }); ok {
		if err := validator.ValidateBasic(); err != nil {
			return SubmitResult{}, NewError(ErrKindUnknown, "message validation failed", err)
		}
	}

	// The entry point call shape on this ledger is a transfer carrying the
	// pool routing in the memo; the staking module picks it up server-side.
	memo := descriptor.Target.EntryPoint + ":" + string(descriptor.Target.PoolID)

	factory := g.txFactory.
		WithAccountNumber(account.GetAccountNumber()).
		WithSequence(account.GetSequence()).
		WithGas(descriptor.GasBudget.Uint64()).
		WithMemo(memo)

	txBuilder, err := factory.BuildUnsignedTx(msg)
	if err != nil {
		return SubmitResult{}, NewError(ErrKindUnknown, "failed to build unsigned tx", err)
	}

	if err := tx.Sign(ctx, factory, g.clientCtx.GetFromName(), txBuilder, true); err != nil {
		return SubmitResult{}, classifySignError(err)
	}

	txBytes, err := g.clientCtx.TxConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		return SubmitResult{}, NewError(ErrKindUnknown, "failed to encode transaction", err)
	}

	res, err := g.clientCtx.BroadcastTx(txBytes)
	if err != nil {
		return SubmitResult{}, classifyBroadcastError(err)
	}
	if res == nil || res.TxHash == "" {
		return SubmitResult{}, NewError(ErrKindUnknown, "broadcast returned no transaction hash", nil)
	}
	if res.Code != 0 {
		return SubmitResult{}, classifyTxCode(res.Code, res.RawLog)
	}

	liveLogger.Info().Str("txHash", res.TxHash).Msg("Transaction accepted, awaiting inclusion")

	return g.awaitInclusion(ctx, res.TxHash)
}

// awaitInclusion polls for the broadcast transaction until it lands or the
// caller's deadline expires. Cancellation of the submission itself is not
// possible at this point; only the wait can be abandoned.
func (g *LiveGateway) awaitInclusion(ctx context.Context, txHash string) (SubmitResult, error) {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return SubmitResult{}, NewError(ErrKindNetworkUnavailable,
				"transaction "+txHash+" not confirmed before deadline", ctx.Err())
		case <-ticker.C:
			txResponse, err := authtx.QueryTx(g.clientCtx, txHash)
			if err != nil {
				// Not found yet; keep waiting.
				continue
			}
			if txResponse.Code != 0 {
				return SubmitResult{}, classifyTxCode(txResponse.Code, txResponse.RawLog)
			}

			gasUsed, convErr := utils.SmallestUnitToDecimal(sdkmath.NewInt(txResponse.GasUsed), config.ScaleExponent)
			if convErr != nil {
				gasUsed = decimal.Zero
			}

			liveLogger.Info().
				Str("txHash", txHash).
				Int64("gasUsed", txResponse.GasUsed).
				Msg("Transaction confirmed")

			return SubmitResult{TransactionID: txHash, GasUsed: gasUsed}, nil
		}
	}
}

func (g *LiveGateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return nil
	}
	g.connected = false
	if g.grpcConn != nil {
		if err := g.grpcConn.Close(); err != nil {
			liveLogger.Error().Err(err).Msg("Failed to close gRPC connection")
			return fmt.Errorf("failed to close gRPC connection: %w", err)
		}
	}
	return nil
}

func validateDescriptor(descriptor types.TransactionDescriptor) error {
	if descriptor.SourceAmount.IsNil() || !descriptor.SourceAmount.IsPositive() {
		return fmt.Errorf("%w: source amount must be positive", ErrInvalidDescriptor)
	}
	if descriptor.GasBudget.IsNil() || !descriptor.GasBudget.IsPositive() {
		return fmt.Errorf("%w: gas budget must be positive", ErrInvalidDescriptor)
	}
	if descriptor.Target.PoolID == "" {
		return fmt.Errorf("%w: target pool id is empty", ErrInvalidDescriptor)
	}
	if descriptor.Target.DepositAddress == "" {
		return fmt.Errorf("%w: target deposit address is empty", ErrInvalidDescriptor)
	}
	return nil
}

func classifySignError(err error) *Error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "aborted") || strings.Contains(msg, "rejected") || strings.Contains(msg, "canceled") {
		return NewError(ErrKindUserRejected, "signing was rejected", err)
	}
	return NewError(ErrKindUnknown, "transaction signing failed", err)
}

func classifyBroadcastError(err error) *Error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "no such host"):
		return NewError(ErrKindNetworkUnavailable, "ledger node unreachable", err)
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "insufficient fee"):
		return NewError(ErrKindInsufficientFunds, "insufficient funds for stake", err)
	default:
		return NewError(ErrKindUnknown, "broadcast failed", err)
	}
}

// classifyTxCode maps ABCI result codes into the gateway taxonomy. Code 5 is
// the SDK's insufficient-funds error.
func classifyTxCode(code uint32, rawLog string) *Error {
	switch code {
	case 5:
		return NewError(ErrKindInsufficientFunds, rawLog, nil)
	default:
		return NewError(ErrKindUnknown, fmt.Sprintf("ledger rejected transaction (code %d): %s", code, rawLog), nil)
	}
}
