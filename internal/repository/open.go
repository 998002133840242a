package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/axellelanca/shortlinks/internal/config"
)

// Open returns the link store selected by cfg.Database.Driver. The caller owns it
// and must Close it on shutdown.
func Open(ctx context.Context, cfg *config.Config) (LinkRepository, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		slog.Info("opening link store", "driver", "sqlite", "name", cfg.Database.Name)
		return OpenSQLite(cfg.Database.Name)
	case "redis":
		slog.Info("opening link store", "driver", "redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	case "memory":
		slog.Warn("opening in-memory link store, links are lost on exit")
		return NewMemoryLinkRepository(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
