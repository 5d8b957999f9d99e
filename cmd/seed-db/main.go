// Command seed-db loads a catalog snapshot into PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file (default: embedded seed)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	ds, err := loadDataset(catalogFile)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("upserting catalog",
		slog.Int("categories", len(ds.Categories)),
		slog.Int("products", len(ds.Products)),
		slog.Int("collections", len(ds.Collections)),
		slog.Int("posts", len(ds.Posts)),
	)

	if err := postgres.UpsertDataset(ctx, pool, ds); err != nil {
		return errors.Wrap(err, "upsert catalog")
	}

	return nil
}

func loadDataset(path string) (*catalog.Dataset, error) {
	data := db.Catalog
	if path != "" {
		slog.Info("reading catalog file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
	}

	ds, err := catalog.DecodeDataset(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return ds, nil
}
