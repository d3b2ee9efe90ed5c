// Package bootstrap wires the runtime dependencies shared by the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/repository"
	"yatube/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedGroups upserts seed.DefaultGroups after connecting.
	SeedGroups bool
	// SkipRedis leaves the redis client nil.
	SkipRedis bool
}

// InitRuntime connects to the database and Redis and optionally seeds the
// default groups. The returned redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if !opts.SkipRedis {
		cache.InitRedis(cfg.RedisURL)
		rdb = cache.GetClient()
	}

	if opts.SeedGroups {
		if err := EnsureDefaultGroups(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed default groups: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureDefaultGroups upserts seed.DefaultGroups.
func EnsureDefaultGroups(ctx context.Context, db *gorm.DB) error {
	groups, err := seed.ImportGroups(ctx, repository.NewGroupRepository(db), seed.DefaultGroups)
	if err != nil {
		return err
	}
	middleware.Logger.Info("default groups ensured", slog.Int("count", len(groups)))
	return nil
}
