package app

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/0xfable/paymaster/src/domain"
	"github.com/go-playground/validator/v10"
)

// AppConfig is built once at startup and passed by reference into each
// component; nothing reads the environment after initialization.
type AppConfig struct {
	// =========================== REQUIRED ===========================

	// Chain RPC endpoint used for block timestamps and getHash calls (required)
	RPCURL *string
	// Private key signing sponsorship authorizations (required)
	PrivateKey *string
	// Deployed VerifyingPaymaster address (required)
	PaymasterAddress *string
	// Deployed EntryPoint address (required)
	EntryPointAddress *string

	// =========================== OPTIONAL ===========================

	// Chain id; fetched from the node at startup when unset
	ChainID *int64

	// Sponsorship validity window in seconds
	ValiditySeconds *uint32

	// Whitelist configuration
	Whitelist *domain.WhitelistConfig

	// Outbound RPC call timeout in seconds
	RPCTimeoutSeconds *int

	// Optional Redis-backed per-sender daily sponsorship cap
	RedisURL          *string
	DailySponsorQuota *int64

	// Logging configuration
	LogLevel *string

	// HTTP server configuration
	Port *string

	// CORS configuration
	AllowOrigins *[]string
}

func NewAppConfig() *AppConfig {
	config := &AppConfig{}

	loadRequiredConfig(config)
	loadOptionalConfig(config)

	return config
}

// loadRequiredConfig loads all required configuration values and fails fast if any are missing
func loadRequiredConfig(config *AppConfig) {
	validate := validator.New()

	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		log.Fatalf("REQUIRED: RPC_URL not set in environment")
	}
	config.RPCURL = &rpcURL

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		log.Fatalf("REQUIRED: PRIVATE_KEY not set in environment")
	}
	// Remove 0x prefix if it exists
	privateKey = strings.TrimPrefix(privateKey, "0x")
	config.PrivateKey = &privateKey

	paymasterAddress := os.Getenv("PAYMASTER_ADDRESS")
	if paymasterAddress == "" {
		log.Fatalf("REQUIRED: PAYMASTER_ADDRESS not set in environment")
	}
	if err := validate.Var(paymasterAddress, "eth_addr"); err != nil {
		log.Fatalf("PAYMASTER_ADDRESS is not a valid address: %s", paymasterAddress)
	}
	config.PaymasterAddress = &paymasterAddress

	entryPointAddress := os.Getenv("ENTRYPOINT_ADDRESS")
	if entryPointAddress == "" {
		log.Fatalf("REQUIRED: ENTRYPOINT_ADDRESS not set in environment")
	}
	if err := validate.Var(entryPointAddress, "eth_addr"); err != nil {
		log.Fatalf("ENTRYPOINT_ADDRESS is not a valid address: %s", entryPointAddress)
	}
	config.EntryPointAddress = &entryPointAddress
}

// loadOptionalConfig loads all optional configuration values with sensible defaults
func loadOptionalConfig(config *AppConfig) {
	validate := validator.New()

	// Paymaster RPC port (default: 3000)
	port := getEnvWithDefault("PORT", "3000")
	config.Port = &port

	// Log level (default: debug)
	// Available levels: "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"
	logLevel := getEnvWithDefault("LOG_LEVEL", "debug")
	config.LogLevel = &logLevel

	// Validity window duration in seconds (default: 300)
	validitySeconds := getValiditySeconds()
	config.ValiditySeconds = &validitySeconds

	// Chain id override; zero means "ask the node at startup"
	if chainIDStr := os.Getenv("CHAIN_ID"); chainIDStr != "" {
		if chainID, err := strconv.ParseInt(chainIDStr, 10, 64); err == nil {
			config.ChainID = &chainID
		} else {
			log.Fatalf("CHAIN_ID is not a valid integer: %s", chainIDStr)
		}
	}

	// Outbound RPC timeout in seconds (default: 10)
	rpcTimeout := 10
	if timeoutStr := os.Getenv("RPC_TIMEOUT"); timeoutStr != "" {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil && parsed > 0 {
			rpcTimeout = parsed
		} else {
			log.Printf("Warning: Invalid RPC_TIMEOUT value '%s', using default 10 seconds", timeoutStr)
		}
	}
	config.RPCTimeoutSeconds = &rpcTimeout

	loadWhitelistConfig(config, validate)
	loadQuotaConfig(config)
	loadCORSConfig(config)
}

// loadWhitelistConfig builds the immutable sender whitelist. WHITELIST is a
// comma-separated address list; WHITELIST_ALLOW_ALL short-circuits it.
func loadWhitelistConfig(config *AppConfig, validate *validator.Validate) {
	allowAll := false
	if allowAllStr := os.Getenv("WHITELIST_ALLOW_ALL"); allowAllStr != "" {
		parsed, err := strconv.ParseBool(allowAllStr)
		if err != nil {
			log.Fatalf("WHITELIST_ALLOW_ALL is not a valid boolean: %s", allowAllStr)
		}
		allowAll = parsed
	}

	var addresses []string
	if whitelistStr := os.Getenv("WHITELIST"); whitelistStr != "" {
		for _, addr := range strings.Split(whitelistStr, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			if err := validate.Var(addr, "eth_addr"); err != nil {
				log.Fatalf("WHITELIST contains an invalid address: %s", addr)
			}
			addresses = append(addresses, addr)
		}
	}

	whitelist := domain.NewWhitelistConfig(allowAll, addresses)
	if !allowAll && whitelist.Size() == 0 {
		log.Printf("Warning: whitelist is empty and WHITELIST_ALLOW_ALL is false, every request will be declined")
	}
	config.Whitelist = &whitelist
}

// loadQuotaConfig enables the Redis-backed daily quota only when REDIS_URL is set.
func loadQuotaConfig(config *AppConfig) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return
	}
	config.RedisURL = &redisURL

	quota := int64(0)
	if quotaStr := os.Getenv("DAILY_SPONSOR_QUOTA"); quotaStr != "" {
		parsed, err := strconv.ParseInt(quotaStr, 10, 64)
		if err != nil || parsed < 0 {
			log.Fatalf("DAILY_SPONSOR_QUOTA is not a valid non-negative integer: %s", quotaStr)
		}
		quota = parsed
	}
	config.DailySponsorQuota = &quota
}

// loadCORSConfig parses comma-separated origins, defaulting to allow-all for
// local tooling.
func loadCORSConfig(config *AppConfig) {
	allowOriginsStr := os.Getenv("ALLOW_ORIGINS")
	var allowOrigins []string

	if allowOriginsStr != "" {
		for _, origin := range strings.Split(allowOriginsStr, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowOrigins = append(allowOrigins, origin)
			}
		}
	} else {
		allowOrigins = []string{"*"}
	}

	config.AllowOrigins = &allowOrigins
}

// getValiditySeconds parses the validity window from environment with default fallback
func getValiditySeconds() uint32 {
	validityStr := os.Getenv("TIME_VALIDITY")
	if validityStr == "" {
		return domain.DefaultValiditySeconds
	}

	if parsed, err := strconv.ParseUint(validityStr, 10, 32); err == nil && parsed > 0 {
		return uint32(parsed)
	}

	log.Printf("Warning: Invalid TIME_VALIDITY value '%s', using default %d seconds", validityStr, domain.DefaultValiditySeconds)
	return domain.DefaultValiditySeconds
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
