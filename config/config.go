package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server ServerConfig
	AWS    AWSConfig
	Chain  ChainConfig
	JWT    JWTConfig
	SMS    SMSConfig
	Hooks  HooksConfig
	Org    OrgConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// AWSConfig holds AWS credentials and DynamoDB table names.
type AWSConfig struct {
	Region            string
	AccessKeyID       string
	SecretAccessKey   string
	UsersTable        string
	OrgsTable         string
	TransactionsTable string
	Endpoint          string // optional override for local DynamoDB
}

// ChainConfig holds RPC, explorer, and fee settings for the chain.
type ChainConfig struct {
	RPCURL         string
	ChainID        int64
	ExplorerAPIURL string
	ExplorerAPIKey string
	// MaxFeeCapGwei is a safety ceiling; transfers fail closed above it.
	MaxFeeCapGwei int64
	// SeedAmountWei is the fixed base amount sent to freshly provisioned wallets.
	SeedAmountWei string
	// AddressHRP is the bech32 human-readable part for P/X addresses.
	AddressHRP string
}

// JWTConfig holds bearer-token validation settings.
type JWTConfig struct {
	Secret string
}

// SMSConfig holds outbound SMS settings.
type SMSConfig struct {
	Enabled  bool
	SenderID string
}

// HooksConfig holds shared secrets for infrastructure-invoked hooks.
type HooksConfig struct {
	StreamSecret string
}

// OrgConfig holds organization defaults.
type OrgConfig struct {
	// DefaultOrgID is the fallback org for users confirmed without one.
	DefaultOrgID string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	chainID, _ := strconv.ParseInt(getEnv("CHAIN_ID", "43114"), 10, 64)
	maxFeeCap, _ := strconv.ParseInt(getEnv("CHAIN_MAX_FEE_CAP_GWEI", "45"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		AWS: AWSConfig{
			Region:            getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UsersTable:        getEnv("DYNAMO_USERS_TABLE", "users"),
			OrgsTable:         getEnv("DYNAMO_ORGS_TABLE", "organizations"),
			TransactionsTable: getEnv("DYNAMO_TRANSACTIONS_TABLE", "transactions"),
			Endpoint:          getEnv("DYNAMO_ENDPOINT", ""),
		},
		Chain: ChainConfig{
			RPCURL:         getEnv("CHAIN_RPC_URL", "https://api.avax.network/ext/bc/C/rpc"),
			ChainID:        chainID,
			ExplorerAPIURL: getEnv("EXPLORER_API_URL", "https://api.snowtrace.io/api"),
			ExplorerAPIKey: getEnv("EXPLORER_API_KEY", ""),
			MaxFeeCapGwei:  maxFeeCap,
			SeedAmountWei:  getEnv("SEED_AMOUNT_WEI", "25000000000000000"),
			AddressHRP:     getEnv("CHAIN_ADDRESS_HRP", "avax"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		SMS: SMSConfig{
			Enabled:  strings.EqualFold(getEnv("SMS_ENABLED", "true"), "true"),
			SenderID: getEnv("SMS_SENDER_ID", ""),
		},
		Hooks: HooksConfig{
			StreamSecret: getEnv("STREAM_HOOK_SECRET", ""),
		},
		Org: OrgConfig{
			DefaultOrgID: getEnv("DEFAULT_ORG_ID", "jacks-pizza-1"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
