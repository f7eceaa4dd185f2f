package persistence

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/shared"
	"github.com/medstock/backend/internal/infrastructure/cache"
	"github.com/medstock/backend/internal/infrastructure/config"
	"github.com/medstock/backend/internal/infrastructure/storage"
	"github.com/medstock/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Backend bundles the key-value store selected by storage.driver with the
// repository and transaction scope built on it.
type Backend struct {
	Driver     string
	Store      shared.KeyValueStore
	Repository *ItemCollectionRepository
	Scope      appinv.TransactionScope
	// Database is set for the sql driver only
	Database *Database
}

// OpenBackend connects the configured store
func OpenBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	b := &Backend{Driver: cfg.Storage.Driver}
	prefix := cfg.Storage.KeyPrefix

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory, "":
		b.Store = cache.NewMemoryStore()

	case config.StorageDriverRedis:
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, "")
		if err != nil {
			return nil, err
		}
		b.Store = store

	case config.StorageDriverS3:
		store, err := storage.NewS3Store(&cfg.S3, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		b.Store = store

	case config.StorageDriverSQL:
		db, err := NewDatabase(&cfg.Database, log, cfg.Log.Level,
			telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database))
		if err != nil {
			return nil, err
		}
		if db.Dialect() != config.DatabaseDriverPostgres {
			if err := db.AutoMigrate(); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		b.Database = db
		b.Store = NewGormStore(db.DB)
		b.Repository = NewItemCollectionRepository(b.Store, prefix)
		b.Scope = NewGormTransactionScope(db.DB, prefix)
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	b.Repository = NewItemCollectionRepository(b.Store, prefix)
	b.Scope = NewLockingTransactionScope(b.Repository)
	return b, nil
}

// Ping checks the store is reachable
func (b *Backend) Ping(ctx context.Context) error {
	if b.Database != nil {
		return b.Database.Ping()
	}
	_, err := b.Store.Get(ctx, b.Repository.key(seededKey))
	if err != nil && !errors.Is(err, shared.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Close releases the store and database connection
func (b *Backend) Close() error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	if b.Database != nil {
		errs = append(errs, b.Database.Close())
	}
	return errors.Join(errs...)
}
