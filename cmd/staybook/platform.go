package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainauth "staybook/internal/domain/auth"
	domainuser "staybook/internal/domain/user"
	rediscache "staybook/internal/infra/cache/redis"
	"staybook/internal/infra/config"
	mongostore "staybook/internal/infra/db/mongo"
	sqlstore "staybook/internal/infra/db/sql"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

// relayStore is the outbox as the relay sees it.
type relayStore interface {
	outbox.Store
	Wake() <-chan struct{}
}

// platform holds the storage side of the process, chosen by STORE_DRIVER and REDIS_URL.
type platform struct {
	uow         uow.UoWFactory
	outbox      appoutbox.Outbox
	relay       relayStore
	idempotency middleware.IdempotencyStore
	lease       policies.Lease
	operators   domainuser.Repository
	sessions    domainauth.SessionStore
	checks      map[string]obs.Check
	migrate     func(ctx context.Context) error
	closers     []func() error
}

func openPlatform(ctx context.Context, cfg config.Config, logger *slog.Logger) (*platform, error) {
	p := &platform{checks: map[string]obs.Check{}}
	holder := leaseHolder()

	switch cfg.StoreDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		box := store.Outbox()
		p.uow, p.outbox, p.relay = store, box, box
		p.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		p.lease = memory.NewLease()
		p.operators = memory.NewOperatorRepository()
		p.sessions = memory.NewSessionStore()
		logger.Warn("using in-memory store, data is lost on restart")

	case config.DriverSQLite, config.DriverPostgres:
		dialect, dsn := sqlstore.DialectPostgres, cfg.DatabaseURL
		if cfg.StoreDriver == config.DriverSQLite {
			dialect, dsn = sqlstore.DialectSQLite, cfg.SQLitePath
		}
		db, err := sqlstore.Open(dialect, dsn, logger)
		if err != nil {
			return nil, err
		}
		store := sqlstore.NewStore(db)
		box := store.Outbox()
		p.uow, p.outbox, p.relay = store, box, box
		p.idempotency = sqlstore.NewIdempotencyStore(db, cfg.IdempotencyTTL)
		p.lease = store.Lease(holder)
		p.operators = sqlstore.NewOperatorRepository(db)
		p.sessions = sqlstore.NewSessionStore(db)
		p.checks["database"] = store.Ping
		p.migrate = func(ctx context.Context) error { return sqlstore.Migrate(ctx, db) }
		p.closers = append(p.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})

	case config.DriverMongo:
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		store := mongostore.NewStore(client)
		box := store.Outbox()
		p.uow, p.outbox, p.relay = store, box, box
		p.idempotency = mongostore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		p.lease = mongostore.NewLease(client, holder)
		p.operators = mongostore.NewOperatorRepository(client)
		p.sessions = mongostore.NewSessionStore(client)
		p.checks["mongo"] = client.Ping
		p.migrate = client.EnsureIndexes
		p.closers = append(p.closers, func() error { return client.Close(context.Background()) })

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.idempotency = rediscache.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		p.sessions = rediscache.NewSessionStore(client)
		p.lease = rediscache.NewLease(client, holder)
		p.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		p.closers = append(p.closers, client.Close)
		logger.Info("redis enabled for idempotency, sessions and leases")
	}
	logger.Info("store ready", "driver", cfg.StoreDriver)
	return p, nil
}

// Migrate applies the schema. The memory store has none.
func (p *platform) Migrate(ctx context.Context) error {
	if p.migrate == nil {
		return nil
	}
	return p.migrate(ctx)
}

func (p *platform) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

func leaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "staybook"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
