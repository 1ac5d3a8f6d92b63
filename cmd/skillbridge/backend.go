package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/api/handlers"
	"github.com/BaSui01/skillbridge/config"
	"github.com/BaSui01/skillbridge/internal/cache"
	"github.com/BaSui01/skillbridge/internal/database"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/state"
)

// =============================================================================
// 💾 会话状态后端
// =============================================================================

// stateBackend 按配置打开的存储后端及其附属资源
type stateBackend struct {
	name    string
	storage state.Storage
	checks  []handlers.HealthCheck
	closers []func(context.Context) error
}

// openStateBackend 根据 state.backend 打开存储；sql 后端按需执行 AutoMigrate
func openStateBackend(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*stateBackend, error) {
	b := &stateBackend{name: cfg.State.Backend}

	switch cfg.State.Backend {
	case "", "memory":
		b.name = "memory"
		b.storage = state.NewMemoryStorage()

	case "redis":
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		cacheCfg.KeyPrefix = cfg.Redis.KeyPrefix
		cacheCfg.StateTTL = cfg.Redis.StateTTL
		cacheCfg.TLS = cfg.Redis.TLS
		if cfg.Redis.PoolSize > 0 {
			cacheCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			cacheCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		mgr, err := cache.NewManager(ctx, cacheCfg, logger)
		if err != nil {
			return nil, err
		}
		b.storage = state.NewRedisStorage(mgr.Client(),
			state.WithRedisPrefix(cacheCfg.KeyPrefix),
			state.WithRedisTTL(cacheCfg.StateTTL),
		)
		b.checks = append(b.checks, handlers.NewRedisHealthCheck(mgr.Ping))
		b.closers = append(b.closers, func(context.Context) error { return mgr.Close() })

	case "sql":
		poolCfg := database.DefaultPoolConfig()
		poolCfg.Name = cfg.Database.Driver
		if cfg.Database.MaxOpenConns > 0 {
			poolCfg.MaxOpenConns = cfg.Database.MaxOpenConns
		}
		if cfg.Database.MaxIdleConns > 0 {
			poolCfg.MaxIdleConns = min(cfg.Database.MaxIdleConns, poolCfg.MaxOpenConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			poolCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		}

		pm, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), poolCfg, collector, logger)
		if err != nil {
			return nil, err
		}
		sqlStore := state.NewSQLStorage(pm.DB(), state.WithTransactor(pm))
		if cfg.State.AutoMigrate {
			if err := sqlStore.AutoMigrate(ctx); err != nil {
				_ = pm.Close()
				return nil, fmt.Errorf("auto migrate state schema: %w", err)
			}
		}
		b.storage = sqlStore
		b.checks = append(b.checks, handlers.NewDatabaseHealthCheck(pm.Ping))
		b.closers = append(b.closers, func(context.Context) error { return pm.Close() })

	case "mongo":
		connectCtx := ctx
		if cfg.Mongo.Timeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.Mongo.Timeout)
			defer cancel()
		}
		ms, err := state.ConnectMongo(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		b.storage = ms
		b.checks = append(b.checks, handlers.NewMongoHealthCheck(ms.Ping))
		b.closers = append(b.closers, ms.Close)

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}

	b.storage = state.Instrument(b.storage, b.name, collector)
	logger.Info("state backend ready", zap.String("backend", b.name))
	return b, nil
}

// conversationState 在后端之上创建会话状态
func (b *stateBackend) conversationState(collector *metrics.Collector, logger *zap.Logger) *state.ConversationState {
	return state.NewConversationState(b.storage,
		state.WithBackendName(b.name),
		state.WithMetrics(collector),
		state.WithLogger(logger),
	)
}

// Close 释放后端连接
func (b *stateBackend) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
