package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"hushpay/internal/alerts"
	"hushpay/internal/api"
	"hushpay/internal/chain"
	"hushpay/internal/chatlog"
	"hushpay/internal/config"
	"hushpay/internal/conversation"
	"hushpay/internal/executor"
	"hushpay/internal/identity"
	"hushpay/internal/keyed"
	"hushpay/internal/keylock"
	"hushpay/internal/ledger"
	"hushpay/internal/llm/openai"
	"hushpay/internal/notify"
	"hushpay/internal/observability/alerting"
	"hushpay/internal/pending"
	"hushpay/internal/provider"
	"hushpay/internal/provider/coingecko"
	"hushpay/internal/provider/helius"
	"hushpay/internal/provider/privacypool"
	"hushpay/internal/provider/rangeapi"
	"hushpay/internal/provider/shadowwire"
	"hushpay/internal/provider/silentswap"
	"hushpay/internal/provider/twilio"
	"hushpay/internal/ratelimit"
	"hushpay/internal/recurring"
	"hushpay/internal/stepup"
	"hushpay/internal/storage/sqlstore"
	"hushpay/internal/wallet"
	"hushpay/pkg/logger"
)

type app struct {
	server     *api.Server
	dispatcher *notify.Dispatcher
	scheduler  *recurring.Scheduler
	watcher    *alerts.Watcher
	identities *identity.Service
	sweepers   []sweeper
	closers    []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.identities != nil {
		a.identities.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Named("hushpayd").Warn("close resource", slog.Any("error", err))
		}
	}
}

type stores struct {
	identities identity.Store
	chat       chatlog.Store
	ledger     ledger.Store
	recurring  recurring.Store
	alerts     alerts.Store
}

type providers struct {
	transfers provider.Transferer
	pool      provider.PrivacyPool
	bridge    provider.Bridge
	screener  provider.Screener
	prices    provider.PriceFeed
	balances  provider.BalanceReader
	watcher   *helius.Client
	sender    provider.Notifier
	registry  *chain.Registry
}

func build(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	log := logger.Named("hushpayd")

	st, err := openStores(ctx, cfg, a)
	if err != nil {
		return a, err
	}

	var redisClient *redis.Client
	if cfg.Keyed.Driver == "redis" || cfg.Queue.Driver == "redis" {
		rc := cfg.Keyed.Redis
		if cfg.Keyed.Driver != "redis" {
			rc = cfg.Queue.Redis
		}
		redisClient, err = keyed.NewRedisClient(ctx, keyed.RedisConfig{Address: rc.Address, Password: rc.Password, DB: rc.DB})
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, redisClient.Close)
	}
	var keyedClient *redis.Client
	if cfg.Keyed.Driver == "redis" {
		keyedClient = redisClient
	}

	queue, err := openQueue(cfg, redisClient)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, queue.Close)

	prov, err := openProviders(ctx, cfg, a)
	if err != nil {
		return a, err
	}

	fanout := []alerting.Notifier{alerting.LogNotifier{}}
	if cfg.Alerting.WebhookURL != "" {
		fanout = append(fanout, &alerting.WebhookNotifier{URL: cfg.Alerting.WebhookURL})
	}
	ops := alerting.NewFanout(fanout...)

	sealer, err := wallet.NewSealer(cfg.Security.EncryptionKey)
	if err != nil {
		return a, err
	}
	var idOpts []identity.Option
	if prov.watcher != nil {
		idOpts = append(idOpts, identity.WithWatcher(prov.watcher))
	}
	people := identity.NewService(st.identities, sealer, idOpts...)
	a.identities = people

	prefix := cfg.Keyed.Redis.Prefix
	pendingStore := pending.NewStore(
		newKeyed[pending.Action](a, keyedClient, prefix, "pending"),
		newKeyed[pending.Failure](a, keyedClient, prefix, "failed"),
	)
	gate := stepup.New(
		newKeyed[stepup.Token](a, keyedClient, prefix, "stepup"),
		people,
		cfg.Server.BaseURL,
		stepup.WithIndex(newKeyed[string](a, keyedClient, prefix, "stepup_index")),
	)
	limiter := ratelimit.New(newKeyed[ratelimit.Window](a, keyedClient, prefix, "ratelimit"))
	locks := keylock.New()

	outbox := notify.NewOutbox(queue)
	a.dispatcher = notify.NewDispatcher(queue, prov.sender,
		notify.WithWorkerCount(cfg.Queue.Workers),
		notify.WithAlertDispatcher(ops),
	)

	exec := executor.New(executor.Dependencies{
		Identities:   people,
		Ledger:       st.ledger,
		Pending:      pendingStore,
		Recurring:    st.recurring,
		Transfers:    prov.transfers,
		Pool:         prov.pool,
		Bridge:       prov.bridge,
		Screener:     prov.screener,
		Balances:     prov.balances,
		Notifier:     outbox,
		Destinations: prov.registry,
	}, executor.WithNativeToken(cfg.Chain.NativeToken))

	interpreter, err := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout(),
	})
	if err != nil {
		return a, err
	}

	engine := conversation.New(conversation.Dependencies{
		Identities:   people,
		Chat:         st.chat,
		Pending:      pendingStore,
		Gate:         gate,
		Executor:     exec,
		Interpreter:  interpreter,
		Limiter:      limiter,
		Locks:        locks,
		Ledger:       st.ledger,
		Recurring:    st.recurring,
		Alerts:       st.alerts,
		Balances:     prov.balances,
		Pool:         prov.pool,
		Notifier:     outbox,
		Destinations: prov.registry,
	},
		conversation.WithNativeToken(cfg.Chain.NativeToken),
		conversation.WithHistoryDepth(cfg.LLM.HistoryDepth),
	)

	a.scheduler = recurring.NewScheduler(st.recurring, exec, locks,
		recurring.WithInterval(cfg.Scheduler.RecurringInterval()),
		recurring.WithAlertDispatcher(ops),
	)
	messenger := notify.NewMessenger(outbox, people, provider.ChannelSMS)
	a.watcher = alerts.NewWatcher(st.alerts, prov.prices, messenger, cfg.Scheduler.PriceAlertInterval())

	var serverOpts []api.Option
	serverOpts = append(serverOpts,
		api.WithNativeToken(cfg.Chain.NativeToken),
		api.WithWebhookSecret(cfg.Server.WebhookSecret),
	)
	if cfg.Twilio.ValidateSignatures {
		serverOpts = append(serverOpts, api.WithTwilioSignatures(cfg.Twilio.AuthToken, cfg.Server.BaseURL))
	}
	a.server = api.NewServer(cfg.Server.Address, engine, gate, outbox, serverOpts...)

	log.Debug("components wired")
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, a *app) (stores, error) {
	if cfg.Storage.Driver == "memory" {
		return stores{
			identities: identity.NewMemoryStore(),
			chat:       chatlog.NewMemoryStore(),
			ledger:     ledger.NewMemoryStore(),
			recurring:  recurring.NewMemoryStore(),
			alerts:     alerts.NewMemoryStore(),
		}, nil
	}
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Storage.ConnMaxLifetimeSeconds) * time.Second,
	})
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, db.Close)
	return stores{
		identities: db.Identities(),
		chat:       db.Messages(),
		ledger:     db.Transfers(),
		recurring:  db.Recurring(),
		alerts:     db.PriceAlerts(),
	}, nil
}

func openQueue(cfg *config.Config, client *redis.Client) (notify.Queue, error) {
	switch cfg.Queue.Driver {
	case "", "memory":
		return notify.NewMemoryQueue(cfg.Queue.Buffer), nil
	case "redis":
		return notify.NewRedisQueue(client, cfg.Queue.Redis.Queue, time.Duration(cfg.Queue.Redis.BlockWait)*time.Second)
	case "rabbitmq":
		return notify.NewRabbitMQQueue(notify.RabbitMQConfig{
			URL:        cfg.Queue.RabbitMQ.URL,
			Queue:      cfg.Queue.RabbitMQ.Queue,
			Prefetch:   cfg.Queue.RabbitMQ.Prefetch,
			Durable:    cfg.Queue.RabbitMQ.Durable,
			AutoDelete: cfg.Queue.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

func openProviders(ctx context.Context, cfg *config.Config, a *app) (providers, error) {
	log := logger.Named("hushpayd")
	p := providers{}
	var err error

	p.registry = chain.DefaultDestinations()
	if cfg.Chain.ChainsFile != "" {
		if p.registry, err = chain.LoadDestinations(cfg.Chain.ChainsFile); err != nil {
			return p, err
		}
	}
	if cfg.Chain.RPCURL == "" {
		log.Warn("RPC_URL is not set, balance checks are disabled")
	} else {
		client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return p, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		p.balances = client
	}

	pc := cfg.Providers
	if p.transfers, err = shadowwire.New(pc.Transfer.URL, pc.Transfer.APIKey); err != nil {
		return p, err
	}
	if p.pool, err = privacypool.New(pc.PrivacyPool.URL, pc.PrivacyPool.APIKey); err != nil {
		return p, err
	}
	if p.bridge, err = silentswap.New(pc.Bridge.URL, pc.Bridge.APIKey); err != nil {
		return p, err
	}
	if p.screener, err = rangeapi.New(pc.Compliance.URL, pc.Compliance.APIKey); err != nil {
		return p, err
	}
	if p.prices, err = coingecko.New(pc.Price.URL); err != nil {
		return p, err
	}
	if pc.Watcher.APIKey != "" {
		w, err := helius.New(pc.Watcher.URL, pc.Watcher.APIKey, cfg.Server.BaseURL+"/webhook/transfers")
		if err != nil {
			return p, err
		}
		p.watcher = w.WithAuthHeader(cfg.Server.WebhookSecret)
	}
	sender, err := twilio.New(twilio.Config{
		BaseURL:        cfg.Twilio.BaseURL,
		AccountSID:     cfg.Twilio.AccountSID,
		AuthToken:      cfg.Twilio.AuthToken,
		PhoneNumber:    cfg.Twilio.PhoneNumber,
		WhatsAppNumber: cfg.Twilio.WhatsAppNumber,
	})
	if err != nil {
		return p, err
	}
	if cfg.Twilio.AccountSID == "" {
		log.Warn("twilio is not configured, outbound messages will be dropped")
	}
	p.sender = sender
	return p, nil
}

// newKeyed returns a Redis-backed store when client is set and an in-memory
// one otherwise. Memory stores are swept periodically.
func newKeyed[T any](a *app, client *redis.Client, prefix, namespace string) keyed.Store[T] {
	if client != nil {
		return keyed.NewRedisStore[T](client, prefix, namespace)
	}
	store := keyed.NewMemoryStore[T]()
	a.sweepers = append(a.sweepers, store)
	return store
}

type sweeper interface {
	Sweep() int
}

const sweepInterval = time.Minute

func sweep(ctx context.Context, stores []sweeper) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, s := range stores {
				s.Sweep()
			}
		}
	}
}
