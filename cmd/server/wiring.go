package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"landledger/internal/auth/nonce"
	authservice "landledger/internal/auth/service"
	"landledger/internal/chain"
	"landledger/internal/content"
	jwttoken "landledger/internal/jwt_token"
	"landledger/internal/outbox"
	"landledger/internal/platform/config"
	"landledger/internal/platform/kafka"
	"landledger/internal/platform/metrics"
	"landledger/internal/platform/postgres"
	"landledger/internal/platform/rabbitmq"
	platformredis "landledger/internal/platform/redis"
	ratelimitmetrics "landledger/internal/ratelimit/metrics"
	ratelimitmw "landledger/internal/ratelimit/middleware"
	ratelimitservice "landledger/internal/ratelimit/service"
	ratelimitstore "landledger/internal/ratelimit/store"
	"landledger/internal/registry/adapters"
	registrymetrics "landledger/internal/registry/metrics"
	"landledger/internal/registry/service"
	"landledger/internal/registry/store"
)

// txReceiptSlack is added to the receipt timeout so a transaction outlives
// the chain call it wraps.
const txReceiptSlack = 30 * time.Second

// infra holds connections that must be closed on shutdown. Optional
// dependencies are nil when not configured.
type infra struct {
	network   chain.Network
	db        *sql.DB
	redis     *platformredis.Client
	eth       *chain.Ethereum
	publisher outbox.Publisher
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *infra, err error) {
	in := &infra{
		network: chain.NewNetwork(cfg.Chain.ChainID, cfg.Chain.ChainName, cfg.Chain.ResolvedRPCURL(), cfg.Chain.ExplorerURL),
	}
	defer func() {
		if err != nil {
			in.Close(log)
		}
	}()

	if cfg.Database.URL != "" {
		if in.db, err = postgres.Open(ctx, cfg.Database); err != nil {
			return nil, err
		}
		if err = postgres.Migrate(ctx, in.db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if in.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}

	if cfg.Chain.Strategy() == config.ChainStrategyEthereum {
		in.eth, err = chain.DialEthereum(ctx, chain.EthereumConfig{
			Network:         in.network,
			ContractAddress: cfg.Chain.ContractAddress,
			SignerKeyHex:    cfg.Chain.SignerKey,
			ReceiptTimeout:  cfg.Chain.ReceiptTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("dial ethereum: %w", err)
		}
	}

	if in.publisher, err = newPublisher(ctx, cfg.Events, log); err != nil {
		return nil, err
	}
	return in, nil
}

func newPublisher(ctx context.Context, cfg config.EventsConfig, log *slog.Logger) (outbox.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		client, err := kafka.NewClient(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.KafkaTopic); err != nil {
			client.Close()
			return nil, err
		}
		return outbox.NewKafkaPublisher(client, cfg.KafkaTopic), nil
	case config.BrokerRabbitMQ:
		conn, ch, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		return outbox.NewRabbitPublisher(conn, ch, cfg.RabbitMQExchange), nil
	default:
		return outbox.NewLogPublisher(log), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (in *infra) Close(log *slog.Logger) {
	if in.publisher != nil {
		logClose(log, "publisher", in.publisher.Close())
	}
	if in.eth != nil {
		in.eth.Close()
	}
	if in.redis != nil {
		logClose(log, "redis", in.redis.Close())
	}
	if in.db != nil {
		logClose(log, "postgres", in.db.Close())
	}
}

type app struct {
	registry    *service.Service
	auth        *authservice.Service
	chain       *chain.Registry
	content     *content.Client
	outbox      *outbox.Worker
	tokens      *jwttoken.JWTServiceAdapter
	rateLimits  *ratelimitmw.Middleware
	httpMetrics *metrics.Metrics
}

func buildApp(ctx context.Context, cfg config.Config, in *infra, reg prometheus.Registerer, log *slog.Logger) (*app, error) {
	var backend chain.Backend = chain.NewSimulated(in.network)
	if in.eth != nil {
		backend = in.eth
	}
	chainRegistry := chain.NewRegistry(backend,
		chain.WithLogger(log),
		chain.WithMetrics(chain.NewMetrics(reg)),
	)

	var (
		registryStore service.Store
		txRunner      service.TxRunner
		outboxStore   outbox.Store
	)
	if in.db != nil {
		registryStore = store.NewPostgres(in.db)
		txRunner = newRegistryPostgresTx(in.db, cfg.Chain.ReceiptTimeout+txReceiptSlack)
		outboxStore = outbox.NewPostgresStore(in.db)
	} else {
		mem := store.NewInMemoryStore()
		registryStore = mem
		txRunner = mem
		outboxStore = outbox.NewInMemoryStore()
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(registrymetrics.NewWithRegisterer(reg)),
		service.WithEventPublisher(adapters.NewOutboxAdapter(outboxStore)),
	}
	if in.redis != nil {
		opts = append(opts, service.WithCache(store.NewRedisPropertyCache(in.redis.Client,
			store.WithCacheTTL(cfg.Registry.PropertyCacheTTL),
			store.WithCacheLogger(log),
		)))
	}
	registrySvc, err := service.New(registryStore, txRunner, adapters.NewLedgerAdapter(chainRegistry), opts...)
	if err != nil {
		return nil, err
	}
	if err := registrySvc.EnsureRegistrars(ctx, cfg.Registry.RegistrarAddresses); err != nil {
		return nil, fmt.Errorf("bootstrap registrars: %w", err)
	}
	if cfg.Registry.SeedDemoProperties {
		if err := registrySvc.SeedDemoProperties(ctx); err != nil {
			return nil, fmt.Errorf("seed demo properties: %w", err)
		}
	}

	var nonces nonce.Store = nonce.NewInMemoryStore()
	if in.redis != nil {
		nonces = nonce.NewRedisStore(in.redis.Client)
	}
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	authSvc, err := authservice.New(nonces, jwtService, registrySvc, cfg.Server.TokenTTL,
		authservice.WithLogger(log),
		authservice.WithNonceTTL(cfg.Server.NonceTTL),
	)
	if err != nil {
		return nil, err
	}

	var buckets ratelimitservice.BucketStore = ratelimitstore.NewInMemoryBucketStore()
	if in.redis != nil {
		buckets = ratelimitstore.NewRedisBucketStore(in.redis.Client)
	}
	limiter, err := ratelimitservice.New(buckets, ratelimitservice.DefaultLimits(cfg.RateLimit),
		ratelimitservice.WithMetrics(ratelimitmetrics.NewWithRegisterer(reg)),
	)
	if err != nil {
		return nil, err
	}

	worker := outbox.NewWorker(outboxStore, in.publisher,
		outbox.WithPollInterval(cfg.Events.PollInterval),
		outbox.WithBatchSize(cfg.Events.BatchSize),
		outbox.WithLogger(log),
		outbox.WithMetrics(outbox.NewMetrics(reg)),
	)

	return &app{
		registry:    registrySvc,
		auth:        authSvc,
		chain:       chainRegistry,
		content:     content.NewClient(cfg.Content, content.WithLogger(log)),
		outbox:      worker,
		tokens:      jwttoken.NewJWTServiceAdapter(jwtService),
		rateLimits:  ratelimitmw.New(limiter, log, ratelimitmw.WithDisabled(cfg.RateLimit.Disabled)),
		httpMetrics: metrics.NewWithRegisterer(reg),
	}, nil
}
