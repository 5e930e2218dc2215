// Command storefront is an interactive terminal client for the BookNest
// catalog. It falls back to the built-in collection when the API is down.
package main

import (
	"context"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/client/booknest"
	"github.com/xenking/booknest/internal/domain/book"
	"github.com/xenking/booknest/internal/domain/catalog"
	"github.com/xenking/booknest/internal/storefront"
	"github.com/xenking/booknest/internal/storefront/terminal"
)

type config struct {
	APIURL       string        `default:"http://localhost:8080/api/" usage:"Catalog API root" flag:"api-url"`
	MediaBaseURL string        `default:"" usage:"Base URL for relative cover image paths; defaults to the API host" flag:"media-base-url"`
	Timeout      time.Duration `default:"10s" usage:"Catalog request timeout"`
	RPS          float64       `default:"5" usage:"Maximum catalog requests per second"`
	Burst        int           `default:"5" usage:"Catalog request burst"`
	TopN         int           `default:"5" usage:"Default bestseller count" flag:"top-n"`
	Username     string        `default:"" usage:"Signed-in user name; empty for a guest"`
}

func loadConfig() (*config, error) {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "BOOKNEST_STOREFRONT",
		Files:              []string{"storefront.yaml"},
		AllowUnknownFields: true,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := booknest.New(cfg.APIURL, booknest.Options{
			Timeout:        cfg.Timeout,
			RPS:            cfg.RPS,
			Burst:          cfg.Burst,
			Logger:         lg.Named("client"),
			MeterProvider:  m.MeterProvider(),
			TracerProvider: m.TracerProvider(),
		})
		if err != nil {
			return errors.Wrap(err, "create client")
		}

		repo, err := catalog.NewRepository(client, book.NewNormalizer(mediaBase(cfg)),
			catalog.WithLogger(lg.Named("catalog")),
			catalog.WithMeterProvider(m.MeterProvider()),
			catalog.WithTracerProvider(m.TracerProvider()),
		)
		if err != nil {
			return errors.Wrap(err, "create repository")
		}

		var identity storefront.Identity = storefront.Guest{}
		if cfg.Username != "" {
			identity = storefront.StaticIdentity{User: storefront.User{Username: cfg.Username}}
		}

		sf := storefront.New(repo,
			storefront.WithLogger(lg.Named("storefront")),
			storefront.WithRenderer(terminal.NewRenderer(os.Stdout)),
			storefront.WithIdentity(identity),
		)
		return terminal.NewShell(sf, os.Stdout, cfg.TopN).Run(ctx, os.Stdin)
	})
}

// mediaBase resolves relative cover paths against the API host when no media
// base is configured.
func mediaBase(cfg *config) string {
	if cfg.MediaBaseURL != "" {
		return cfg.MediaBaseURL
	}
	base, err := booknest.Origin(cfg.APIURL)
	if err != nil {
		return ""
	}
	return base
}
