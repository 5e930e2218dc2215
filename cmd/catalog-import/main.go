// Command catalog-import loads gzip-compressed JSON-lines catalog exports into
// the catalog database. Files are taken in name order; when exports overlap
// the later file wins.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/importer"
	"github.com/xenking/booknest/internal/storage/postgres"
)

type config struct {
	DataDir       string `default:"data" usage:"Directory containing catalog exports" flag:"data-dir"`
	Pattern       string `default:"*.jsonl.gz" usage:"Glob selecting export files inside data-dir" flag:"pattern"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (BOOKNEST_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MediaBaseURL  string `default:"" usage:"Base URL for relative cover image paths" flag:"media-base-url"`
	BatchSize     int    `default:"500" usage:"Books written per transaction" flag:"batch-size"`
	ExpectedBooks int    `default:"1000000" usage:"Expected books per file, sizes the bloom filters" flag:"expected-books"`
}

func loadConfig() (*config, error) {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKNEST",
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(ctx, lg, cfg)
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg *config) error {
	files, err := filepath.Glob(filepath.Join(cfg.DataDir, cfg.Pattern))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", cfg.Pattern, cfg.DataDir)
	}
	lg.Info("Importing catalog exports", zap.Strings("files", files))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	im := importer.New(
		postgres.NewBookRepository(pool),
		book.NewNormalizer(cfg.MediaBaseURL),
		importer.Options{
			BatchSize:     cfg.BatchSize,
			ExpectedBooks: uint(max(cfg.ExpectedBooks, 1)),
			Logger:        lg.Named("importer"),
		},
	)
	if _, err := im.Import(ctx, files); err != nil {
		return errors.Wrap(err, "import")
	}
	return nil
}
