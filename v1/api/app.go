// Package api exposes the Redis and user services over HTTP.
//
// An App owns the Redis client and the database handle for its lifetime.
// Handlers reach every backend through the App; there is no package state
// other than metrics.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mirkobrombin/go-redisdemo/v1/adapter"
	"github.com/mirkobrombin/go-redisdemo/v1/cache"
	"github.com/mirkobrombin/go-redisdemo/v1/config"
	"github.com/mirkobrombin/go-redisdemo/v1/geo"
	"github.com/mirkobrombin/go-redisdemo/v1/leaderboard"
	"github.com/mirkobrombin/go-redisdemo/v1/lock"
	"github.com/mirkobrombin/go-redisdemo/v1/metrics"
	"github.com/mirkobrombin/go-redisdemo/v1/stream"
	"github.com/mirkobrombin/go-redisdemo/v1/users"
	"github.com/mirkobrombin/go-redisdemo/v1/watchbus"
)

// App wires the services to their stores.
type App struct {
	cfg *config.Config
	rdb *redis.Client
	db  *gorm.DB

	locker    lock.Locker
	streams   *stream.Gateway
	events    *stream.Log
	board     *leaderboard.Board
	geo       *geo.Index
	kv        cache.Cache[string]
	store     *adapter.GormUserStore
	userCache *cache.RistrettoCache[users.User]
	users     *users.Service
	tail      *watchbus.RedisTail
	registry  *prometheus.Registry
}

// New builds an App on top of rdb and db. The App takes ownership of both
// and releases them in Close.
func New(cfg *config.Config, rdb *redis.Client, db *gorm.DB) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		cfg:      cfg,
		rdb:      rdb,
		db:       db,
		streams:  stream.NewGateway(rdb),
		events:   stream.NewLog(rdb),
		board:    leaderboard.New(rdb, cfg.Leaderboard.Key),
		geo:      geo.New(rdb, cfg.Geo.Key),
		kv:       cache.NewRedis[string](rdb, cache.StringCodec{}),
		store:    adapter.NewGormUserStore(db, adapter.WithGormTimeout(cfg.Database.Timeout)),
		tail:     watchbus.NewRedisTail(rdb, cfg.Tail.Block),
		registry: metrics.NewRegistry(),
	}

	switch cfg.Lock.Backend {
	case "memory":
		a.locker = lock.NewInMemory()
	default:
		a.locker = lock.NewRedis(rdb)
	}

	var opts []users.Option
	if cfg.Users.CacheTTL > 0 {
		c, err := cache.NewRistretto[users.User](cache.WithMaxEntries(cfg.Users.CacheEntries))
		if err != nil {
			return nil, fmt.Errorf("user cache: %w", err)
		}
		a.userCache = c
		opts = append(opts, users.WithCache(c, cfg.Users.CacheTTL))
	}
	a.users = users.NewService(a.store, opts...)

	metrics.RegisterCoreMetrics(a.registry)
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return a, nil
}

// Migrate creates the relational schema.
func (a *App) Migrate(ctx context.Context) error {
	return a.store.Migrate(ctx)
}

// Ping checks both stores.
func (a *App) Ping(ctx context.Context) error {
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// Registry returns the metrics registry served on /metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// CloseStreams ends every open watch so SSE and WebSocket handlers return.
// Other requests are left to finish.
func (a *App) CloseStreams() {
	a.tail.Close()
}

// Close ends open watches and releases the caches and both connection pools.
func (a *App) Close() error {
	a.CloseStreams()
	if a.userCache != nil {
		a.userCache.Close()
	}
	var errs []error
	if err := a.rdb.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
