package cli

import (
	"context"
	"fmt"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/storage"
	"github.com/codepr/crawlwave/internal/storage/bboltstore"
	"github.com/codepr/crawlwave/internal/storage/sqlitestore"
)

// openBackend resolves cfg.Backend into a concrete storage.Backend scoped
// to waveName, matching the original's sqlite/postgres backend selection
// behind `lib-lopez`'s `Backend` trait object.
func openBackend(ctx context.Context, cfg *config.Config, waveName string) (storage.Backend, error) {
	switch cfg.Backend {
	case "bbolt":
		store, err := bboltstore.Open(cfg.DBPath, waveName)
		if err != nil {
			return nil, err
		}
		return bboltstore.Backend{Store: store}, nil
	case "sqlite":
		store, err := sqlitestore.Open(ctx, cfg.DBPath, waveName)
		if err != nil {
			return nil, err
		}
		return sqlitestore.Backend{Store: store}, nil
	default:
		return nil, fmt.Errorf("cli: unknown backend %q (want bbolt or sqlite)", cfg.Backend)
	}
}
