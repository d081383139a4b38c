package db

import (
	"context"
	"fmt"

	"github.com/numeshj/saranya-class/internal/config"
	"github.com/numeshj/saranya-class/internal/repository"
)

// OpenStore connects the backend named by configuration and returns the
// store plus a cleanup func. This is the single selection point; everything
// downstream sees only the repository.Store interface.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return repository.NewPostgres(pool), pool.Close, nil
	case "mongo":
		client, err := NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		store := repository.NewMongo(client, cfg.MongoDatabase)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return store, cleanup, nil
	case "memory":
		return repository.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
