package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	liststrings "landledger/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	AdminAPIToken string
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
	NonceTTL      time.Duration
	Environment   string
}

// DatabaseConfig is empty when the registry runs on in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ChainConfig selects and configures the ledger backend.
type ChainConfig struct {
	AlchemyAPIKey   string
	RPCURL          string
	ChainID         int64
	ChainName       string
	ExplorerURL     string
	ContractAddress string
	SignerKey       string
	ReceiptTimeout  time.Duration
}

const (
	ChainStrategySimulated = "simulated"
	ChainStrategyEthereum  = "ethereum"
)

// Strategy is decided once: a configured contract address means a real chain.
func (c ChainConfig) Strategy() string {
	if c.ContractAddress != "" {
		return ChainStrategyEthereum
	}
	return ChainStrategySimulated
}

// ResolvedRPCURL prefers an explicit RPC URL and falls back to Alchemy Sepolia.
func (c ChainConfig) ResolvedRPCURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	if c.AlchemyAPIKey != "" {
		return "https://eth-sepolia.g.alchemy.com/v2/" + c.AlchemyAPIKey
	}
	return ""
}

type ContentConfig struct {
	PinataAPIKey    string
	PinataSecretKey string
	PinataGateway   string
	PinataAPIURL    string
}

const (
	BrokerLog      = "log"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

type EventsConfig struct {
	Broker           string
	KafkaBrokers     []string
	KafkaTopic       string
	RabbitMQURL      string
	RabbitMQExchange string
	PollInterval     time.Duration
	BatchSize        int
}

type RegistryConfig struct {
	RegistrarAddresses []string
	SeedDemoProperties bool
	PropertyCacheTTL   time.Duration
}

// RateLimitConfig caps per-IP requests on unauthenticated write routes.
type RateLimitConfig struct {
	Disabled       bool
	AuthPerMinute  int
	WritePerMinute int
}

type LogConfig struct {
	Format string
	Level  string
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Chain     ChainConfig
	Content   ContentConfig
	Events    EventsConfig
	Registry  RegistryConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("LANDLEDGER_ADDR", ":8080"),
			AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
			// Development default; production deployments must override it.
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("JWT_ISSUER", "landledger"),
			TokenTTL:      envDuration("TOKEN_TTL", time.Hour),
			NonceTTL:      envDuration("NONCE_TTL", 5*time.Minute),
			Environment:   envOr("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Chain: ChainConfig{
			AlchemyAPIKey:   os.Getenv("ALCHEMY_API_KEY"),
			RPCURL:          os.Getenv("CHAIN_RPC_URL"),
			ChainID:         int64(envInt("CHAIN_ID", 11155111)),
			ChainName:       envOr("CHAIN_NAME", "Sepolia Testnet"),
			ExplorerURL:     envOr("CHAIN_EXPLORER_URL", "https://sepolia.etherscan.io"),
			ContractAddress: strings.TrimSpace(os.Getenv("REGISTRY_CONTRACT_ADDRESS")),
			SignerKey:       strings.TrimPrefix(strings.TrimSpace(os.Getenv("REGISTRY_SIGNER_KEY")), "0x"),
			ReceiptTimeout:  envDuration("CHAIN_RECEIPT_TIMEOUT", 2*time.Minute),
		},
		Content: ContentConfig{
			PinataAPIKey:    os.Getenv("PINATA_API_KEY"),
			PinataSecretKey: os.Getenv("PINATA_SECRET_KEY"),
			PinataGateway:   os.Getenv("PINATA_GATEWAY"),
			PinataAPIURL:    envOr("PINATA_API_URL", "https://api.pinata.cloud"),
		},
		Events: EventsConfig{
			Broker:           strings.ToLower(envOr("EVENTS_BROKER", BrokerLog)),
			KafkaBrokers:     liststrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:       envOr("KAFKA_TOPIC", "landledger.property-events"),
			RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
			RabbitMQExchange: envOr("RABBITMQ_EXCHANGE", "landledger.events"),
			PollInterval:     envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:        envInt("OUTBOX_BATCH_SIZE", 100),
		},
		Registry: RegistryConfig{
			RegistrarAddresses: liststrings.DedupeAndTrimLower(liststrings.SplitList(os.Getenv("REGISTRAR_ADDRESSES"))),
			SeedDemoProperties: envBool("SEED_DEMO_PROPERTIES", false),
			PropertyCacheTTL:   envDuration("PROPERTY_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Disabled:       envBool("RATE_LIMIT_DISABLED", false),
			AuthPerMinute:  envInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			WritePerMinute: envInt("RATE_LIMIT_WRITE_PER_MINUTE", 30),
		},
		Log: LogConfig{
			Format: envOr("LOG_FORMAT", "json"),
			Level:  envOr("LOG_LEVEL", "info"),
		},
	}
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Chain.ContractAddress != "" && !common.IsHexAddress(c.Chain.ContractAddress) {
		errs = append(errs, fmt.Errorf("REGISTRY_CONTRACT_ADDRESS %q is not an address", c.Chain.ContractAddress))
	}
	if c.Chain.Strategy() == ChainStrategyEthereum {
		if c.Chain.SignerKey == "" {
			errs = append(errs, errors.New("REGISTRY_SIGNER_KEY is required when REGISTRY_CONTRACT_ADDRESS is set"))
		}
		if c.Chain.ResolvedRPCURL() == "" {
			errs = append(errs, errors.New("CHAIN_RPC_URL or ALCHEMY_API_KEY is required when REGISTRY_CONTRACT_ADDRESS is set"))
		}
	}
	for _, addr := range c.Registry.RegistrarAddresses {
		if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("REGISTRAR_ADDRESSES entry %q is not an address", addr))
		}
	}

	switch c.Events.Broker {
	case BrokerLog:
	case BrokerKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENTS_BROKER=kafka"))
		}
	case BrokerRabbitMQ:
		if c.Events.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required when EVENTS_BROKER=rabbitmq"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENTS_BROKER %q is not one of log, kafka, rabbitmq", c.Events.Broker))
	}
	if c.Events.Broker != BrokerLog && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when an events broker is configured"))
	}
	if c.Events.BatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if !c.RateLimit.Disabled && (c.RateLimit.AuthPerMinute <= 0 || c.RateLimit.WritePerMinute <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_AUTH_PER_MINUTE and RATE_LIMIT_WRITE_PER_MINUTE must be positive"))
	}

	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
