// Command seed writes a synthetic cosmetics catalog in the fixture format.
// Point CATALOG_FIXTURE_PATH at the output and set CATALOG_SEED=true to load
// it into postgres or elasticsearch at startup.
package main

import (
	"bufio"
	"log/slog"
	"os"

	pkgconfig "github.com/utafrali/CosmeticsGo/pkg/config"
	"github.com/utafrali/CosmeticsGo/pkg/logger"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/repository/seed"
)

type seedConfig struct {
	Products int    `env:"SEED_PRODUCTS" envDefault:"10000"`
	Random   uint64 `env:"SEED_RANDOM" envDefault:"42"`
	Output   string `env:"SEED_OUTPUT" envDefault:"fixtures/catalog-large.json"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	if cfg.Products < 1 {
		log.Error("SEED_PRODUCTS must be positive", slog.Int("products", cfg.Products))
		os.Exit(1)
	}

	fixture := seed.Generate(cfg.Products, cfg.Random)

	f, err := os.Create(cfg.Output)
	if err != nil {
		log.Error("failed to create output", slog.String("path", cfg.Output), slog.String("error", err.Error()))
		os.Exit(1)
	}
	w := bufio.NewWriter(f)
	if err := repository.EncodeFixture(w, fixture); err != nil {
		f.Close()
		log.Error("failed to write catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		log.Error("failed to flush catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		log.Error("failed to close output", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog written",
		slog.String("path", cfg.Output),
		slog.Int("products", len(fixture.Products)),
		slog.Int("brands", len(fixture.Brands)),
		slog.Int("subcategories", len(fixture.Subcategories)),
	)
}
