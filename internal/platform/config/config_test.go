package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"LANDLEDGER_ADDR", "REGISTRY_CONTRACT_ADDRESS", "EVENTS_BROKER", "REGISTRAR_ADDRESSES", "CHAIN_ID"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ChainStrategySimulated, cfg.Chain.Strategy())
	assert.Equal(t, int64(11155111), cfg.Chain.ChainID)
	assert.Equal(t, BrokerLog, cfg.Events.Broker)
	assert.Nil(t, cfg.Registry.RegistrarAddresses)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRAR_ADDRESSES", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e, 0x742D35CC6634C0532925A3B844BC454E4438F44E,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("SEED_DEMO_PROPERTIES", "true")
	t.Setenv("ALCHEMY_API_KEY", "demo-key")
	t.Setenv("CHAIN_RPC_URL", "")

	cfg := FromEnv()
	assert.Equal(t, []string{"0x742d35cc6634c0532925a3b844bc454e4438f44e"}, cfg.Registry.RegistrarAddresses)
	assert.Equal(t, 250*time.Millisecond, cfg.Events.PollInterval)
	assert.True(t, cfg.Registry.SeedDemoProperties)
	assert.Equal(t, "https://eth-sepolia.g.alchemy.com/v2/demo-key", cfg.Chain.ResolvedRPCURL())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Events:    EventsConfig{Broker: BrokerLog, BatchSize: 10},
			RateLimit: RateLimitConfig{AuthPerMinute: 10, WritePerMinute: 30},
		}
	}

	t.Run("ethereum without signer", func(t *testing.T) {
		cfg := base()
		cfg.Chain.ContractAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
		cfg.Chain.RPCURL = "http://localhost:8545"
		assert.ErrorContains(t, cfg.Validate(), "REGISTRY_SIGNER_KEY")
	})

	t.Run("malformed contract address", func(t *testing.T) {
		cfg := base()
		cfg.Chain.ContractAddress = "not-an-address"
		cfg.Chain.SignerKey = "aa"
		cfg.Chain.RPCURL = "http://localhost:8545"
		assert.ErrorContains(t, cfg.Validate(), "REGISTRY_CONTRACT_ADDRESS")
	})

	t.Run("malformed registrar", func(t *testing.T) {
		cfg := base()
		cfg.Registry.RegistrarAddresses = []string{"0x1234"}
		assert.ErrorContains(t, cfg.Validate(), "REGISTRAR_ADDRESSES")
	})

	t.Run("kafka needs brokers and a database", func(t *testing.T) {
		cfg := base()
		cfg.Events.Broker = BrokerKafka
		err := cfg.Validate()
		assert.ErrorContains(t, err, "KAFKA_BROKERS")
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown broker", func(t *testing.T) {
		cfg := base()
		cfg.Events.Broker = "nats"
		assert.ErrorContains(t, cfg.Validate(), "EVENTS_BROKER")
	})

	t.Run("rate limits must be positive unless disabled", func(t *testing.T) {
		cfg := base()
		cfg.RateLimit.AuthPerMinute = 0
		assert.ErrorContains(t, cfg.Validate(), "RATE_LIMIT_AUTH_PER_MINUTE")

		cfg.RateLimit.Disabled = true
		assert.NoError(t, cfg.Validate())
	})
}
