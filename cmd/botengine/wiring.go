package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/internal/config"
	"github.com/malcolmmathew-zz/bot-engine/internal/logging"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/file"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/memory"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/redis"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/sqlite"
	"github.com/malcolmmathew-zz/bot-engine/pkg/classifier"
	"github.com/malcolmmathew-zz/bot-engine/pkg/content"
	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/malcolmmathew-zz/bot-engine/pkg/observability"
	"github.com/malcolmmathew-zz/bot-engine/pkg/persistence/middleware"
	"github.com/malcolmmathew-zz/bot-engine/pkg/ports"
)

// runtimeDeps is everything a command needs to drive the engine.
type runtimeDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	graph    *domain.FlowGraph
	resolver *content.Resolver
	store    ports.SessionStore
	locker   ports.DistributedLocker
	closers  []func() error
}

func (d *runtimeDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close failed", "err", err)
		}
	}
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat == "text" {
		return logging.New(level), nil
	}
	return logging.NewJSON(w, level), nil
}

// setup loads the flow, the texts and opens the configured store.
func setup(cfg *config.Config) (*runtimeDeps, error) {
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	deps := &runtimeDeps{cfg: cfg, logger: logger}

	deps.graph, err = flow.LoadFile(cfg.FlowPath)
	if err != nil {
		return nil, err
	}

	var texts map[string]string
	if cfg.TextsPath != "" {
		if texts, err = content.LoadTexts(cfg.TextsPath); err != nil {
			return nil, err
		}
	}
	deps.resolver = content.NewResolver(deps.graph, texts)

	if err := deps.openStore(); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func (d *runtimeDeps) openStore() error {
	cfg := d.cfg
	switch cfg.Store {
	case config.StoreRedis:
		opts := []redis.Option{
			redis.WithPrefix(cfg.RedisPrefix + "session:"),
			redis.WithLedgerPrefix(cfg.RedisPrefix + "ledger:"),
		}
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Client().Ping(context.Background()).Err(); err != nil {
			store.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		d.store = store
		d.closers = append(d.closers, store.Close)
		if cfg.DistributedLock {
			d.locker = redis.NewLocker(store.Client(), cfg.RedisPrefix)
		}
	case config.StoreSQLite:
		store, err := sqlite.New(cfg.SQLiteDSN)
		if err != nil {
			return err
		}
		d.store = store
		d.closers = append(d.closers, store.Close)
	case config.StoreFile:
		d.store = file.New(cfg.FileDir)
	default:
		d.store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.PIIFields) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIFields))
	}
	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
			Records:      cfg.EncryptRecords,
		}))
	}
	d.store = middleware.Chain(d.store, mws...)
	return nil
}

// engine builds the facade on top of the opened dependencies.
func (d *runtimeDeps) engine(deliverer ports.Deliverer, hooks ...domain.LifecycleHooks) (*botengine.Engine, error) {
	opts := []botengine.Option{
		botengine.WithStore(d.store),
		botengine.WithLogger(d.logger),
		botengine.WithClassifier(classifier.Classifier{MaxInputSize: d.cfg.MaxInputSize}),
		botengine.WithLockTTL(d.cfg.LockTTL),
		botengine.WithLifecycleHooks(observability.Chain(hooks...)),
	}
	if d.locker != nil {
		opts = append(opts, botengine.WithLocker(d.locker))
	}
	if deliverer != nil {
		opts = append(opts, botengine.WithDeliverer(deliverer))
	}
	return botengine.New(d.graph, opts...)
}
