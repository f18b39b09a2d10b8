package app

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/0xfable/paymaster/src/handler"
	"github.com/0xfable/paymaster/src/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type Application struct {
	config  AppConfig
	chain   *service.ChainService
	redis   *redis.Client
	Sponsor *service.SponsorService
}

func NewApplication(ctx context.Context, config AppConfig) *Application {
	logger := zerolog.Ctx(ctx).With().Str("function", "NewApplication").Logger()

	// Connect to the chain RPC endpoint
	chain, err := service.NewChainService(*config.RPCURL, time.Duration(*config.RPCTimeoutSeconds)*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("connection to rpc endpoint failed")
		return nil
	}

	// Resolve the chain id once; it is part of the digest domain separation
	var chainID *big.Int
	if config.ChainID != nil {
		chainID = big.NewInt(*config.ChainID)
	} else {
		chainID, err = chain.ChainID(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to fetch chain id from node")
			return nil
		}
	}
	logger.Info().Str("chain_id", chainID.String()).Msg("Chain RPC connection established")

	signer, err := service.NewSignerService(*config.PrivateKey)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load signing key")
		return nil
	}
	logger.Info().Str("signer", signer.Address().Hex()).Msg("Sponsorship signer loaded")

	paymaster := common.HexToAddress(*config.PaymasterAddress)
	entrypoint := common.HexToAddress(*config.EntryPointAddress)

	// Optional Redis-backed daily quota
	var rdb *redis.Client
	var quota service.QuotaChecker
	if config.RedisURL != nil {
		redisOpts, err := redis.ParseURL(*config.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse redis URL")
			return nil
		}
		rdb = redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Msg("connection to redis failed")
			return nil
		}
		logger.Info().Msg("Redis connection established")

		dailyCap := int64(0)
		if config.DailySponsorQuota != nil {
			dailyCap = *config.DailySponsorQuota
		}
		quota = service.NewRedisQuota(rdb, dailyCap)
	}

	policy := service.NewWhitelistPolicy(*config.Whitelist)
	hasher := service.NewHashService(chain, paymaster, entrypoint, chainID)
	sponsor := service.NewSponsorService(policy, chain, hasher, signer, quota, paymaster, *config.ValiditySeconds)

	return &Application{
		config:  config,
		chain:   chain,
		redis:   rdb,
		Sponsor: sponsor,
	}
}

func (app *Application) Shutdown(ctx context.Context) {
	logger := zerolog.Ctx(ctx).With().Str("function", "Shutdown").Logger()

	if app.chain != nil {
		app.chain.Close()
		logger.Info().Msg("Chain RPC connection closed")
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close redis connection")
		} else {
			logger.Info().Msg("Redis connection closed")
		}
	}
}

func (app *Application) RunHTTPServer(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := zerolog.Ctx(ctx).With().Str("function", "RunHTTPServer").Logger()

	// Set to release mode to disable Gin logger
	gin.SetMode(gin.ReleaseMode)

	ginRouter := gin.Default()

	// Register routes
	app.registerRoutes(ctx, ginRouter)

	// Build HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", *app.config.Port),
		Handler: ginRouter,
	}

	// Start server in goroutine
	go func() {
		zerolog.Ctx(ctx).Info().Msgf("Paymaster RPC is on http://localhost:%s/", *app.config.Port)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			zerolog.Ctx(ctx).Panic().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	logger.Info().Msg("Gracefully shutting down HTTP server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown HTTP server gracefully")
	} else {
		logger.Info().Msg("HTTP server shutdown complete")
	}
}

func (app *Application) registerRoutes(ctx context.Context, router *gin.Engine) {
	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = *app.config.AllowOrigins
	config.AllowMethods = []string{"POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-Id"}

	router.Use(cors.New(config))

	handler.SetMiddlewares(ctx, router)

	rpcHandler := handler.NewRPCHandler(app.Sponsor)

	router.GET("/health", handler.HandleHealthCheck)
	router.POST("/", rpcHandler.Handle())
}
