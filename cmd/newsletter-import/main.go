// Command newsletter-import bulk loads subscriber exports into PostgreSQL.
//
// Every input file is gzip-compressed with one address per line. Addresses
// are normalized, de-duplicated across all files and inserted in batches;
// addresses already on the list are skipped.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/newsletter"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		cfg         newsletter.ImportConfig
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz subscriber exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&cfg.ExpectedAddresses, "expected", 1_000_000, "expected number of addresses, sizes the bloom filter")
	flag.Float64Var(&cfg.FalsePositiveRate, "fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&cfg.BatchSize, "batch-size", 1000, "addresses per insert")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, dataDir, databaseURL, cfg); err != nil {
		lg.Fatal("Newsletter import failed", zap.Error(err))
	}

	lg.Info("Newsletter import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, cfg newsletter.ImportConfig) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list input files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files in %s", dataDir)
	}

	zctx.From(ctx).Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	importer := newsletter.NewImporter(postgres.NewSubscriberRepository(pool), cfg)
	if _, err := importer.Import(ctx, files); err != nil {
		return errors.Wrap(err, "import subscribers")
	}
	return nil
}
