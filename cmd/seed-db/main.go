// Command seed-db writes the built-in book collection into the catalog
// database.
package main

import (
	"context"
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/storage/postgres"
)

type config struct {
	DatabaseURL string `usage:"PostgreSQL connection URL (BOOKNEST_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			EnvPrefix: "BOOKNEST",
			SkipFiles: true,
		})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		}
		if cfg.DatabaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		return run(ctx, lg, cfg.DatabaseURL)
	})
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	books := book.Seed()
	if err := postgres.NewBookRepository(pool).Upsert(ctx, books); err != nil {
		return errors.Wrap(err, "upsert seed books")
	}
	for _, b := range books {
		lg.Info("Upserted book",
			zap.Int64("id", b.ID),
			zap.String("title", b.Title),
			zap.String("category", b.Category),
		)
	}
	lg.Info("Seed completed", zap.Int("books", len(books)))
	return nil
}
