package main

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/agrostake/aic/internal/config"
	"github.com/agrostake/aic/internal/datafetcher"
	"github.com/agrostake/aic/internal/gateway"
	"github.com/agrostake/aic/internal/lifecycle"
	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/reconcile"
	"github.com/agrostake/aic/internal/txbuilder"
	"github.com/agrostake/aic/internal/types"
	"github.com/agrostake/aic/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// main is the entry point for the AIC dashboard backend.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Str("mode", config.RunMode).Msg("AIC Core Starting...")

	// --- 2. Pool Data Feed ---
	pools, err := datafetcher.NewStaticPoolSource(datafetcher.SeedPools())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed pool data")
	}

	// --- 3. Signer Gateway (with Safety Switch) ---
	var signer gateway.SignerGateway

	if config.RunMode == "live" {
		log.Warn().Msg("Initializing AIC in LIVE mode. Real transactions will be broadcast.")

		grpcEndpoint := config.NodeGRPC
		var creds grpc.DialOption
		if strings.Contains(grpcEndpoint, ":443") {
			creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
		} else {
			creds = grpc.WithTransportCredentials(insecure.NewCredentials())
		}
		grpcClient, err := grpc.NewClient(grpcEndpoint, creds)
		if err != nil {
			log.Fatal().Err(err).Msg("gRPC connection error")
		}
		defer grpcClient.Close()
		log.Info().Str("endpoint", grpcEndpoint).Msg("gRPC connected")

		liveGateway, err := gateway.NewLiveGateway(grpcClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize live signer gateway")
		}
		signer = liveGateway
	} else {
		log.Info().Msg("Initializing AIC in SIM mode. No real transactions will be broadcast.")
		simGateway := gateway.NewSimGateway(
			getEnvOr("AIC_SIM_ADDRESS", "agro1simulatedwalletaddress"),
			decimal.RequireFromString(getEnvOr("AIC_SIM_BALANCE", "500")),
			config.ScaleExponent,
		).WithLatency(750 * time.Millisecond)
		signer = simGateway
	}

	// --- 4. Balance Reconciliation ---
	reconciler, err := reconcile.New(reconcile.Rates{
		PlatformTokensPerNative: config.PlatformTokensPerNative,
		USDPerPlatformToken:     config.USDPerPlatformToken,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize balance reconciliation")
	}

	poller := gateway.NewBalancePoller(signer, config.BalancePollInterval)
	poller.Subscribe(reconciler.OnNativeBalance)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	// --- 5. Web Server ---
	builder := txbuilder.New(config.ScaleExponent, config.GasBudget, config.StakeDepositAddress)

	webServer := web.NewWebServer(config.WebPort, web.Deps{
		Pools:              pools,
		Gateway:            signer,
		Builder:            builder,
		Reconciler:         reconciler,
		Poller:             poller,
		Network:            types.Network(config.Network),
		Scheduler:          lifecycle.TimerScheduler{},
		SuccessNotifyDelay: config.SuccessNotifyDelay,
		ProcessingTimeout:  config.ProcessingTimeout,
	})

	log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting AIC web dashboard")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// Helper to read an environment variable with a default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
