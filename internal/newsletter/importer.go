package newsletter

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImportConfig tunes a bulk subscriber import.
type ImportConfig struct {
	// ExpectedAddresses sizes the bloom filter.
	ExpectedAddresses uint
	// FalsePositiveRate of the bloom filter. Higher rates only cost memory
	// in the exact pass, never correctness.
	FalsePositiveRate float64
	// BatchSize is the number of addresses written per repository call.
	BatchSize int
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Lines    int64
	Invalid  int64
	Unique   int64
	Suspects int
	Inserted int64
}

// Importer loads gzip-compressed subscriber exports, one address per line.
type Importer struct {
	repo Repository
	cfg  ImportConfig
}

// NewImporter creates an Importer writing to repo.
func NewImporter(repo Repository, cfg ImportConfig) *Importer {
	if cfg.ExpectedAddresses == 0 {
		cfg.ExpectedAddresses = 1_000_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 0.001
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Importer{repo: repo, cfg: cfg}
}

// Import de-duplicates the addresses of all files and inserts them.
//
// Pass 1 feeds every address through a bloom filter and records the ones
// it reports as already seen. Pass 2 re-reads the files and emits each
// address once, tracking only the pass 1 suspects in an exact set.
func (im *Importer) Import(ctx context.Context, files []string) (ImportStats, error) {
	lg := zctx.From(ctx)
	var stats ImportStats

	filter := bloom.NewWithEstimates(im.cfg.ExpectedAddresses, im.cfg.FalsePositiveRate)
	suspects := make(map[string]struct{})

	lg.Info("Pass 1: collecting duplicate suspects", zap.Int("files", len(files)))
	if err := scanAll(ctx, files, func(line string) error {
		stats.Lines++
		email, err := Normalize(line)
		if err != nil {
			stats.Invalid++
			return nil
		}
		if filter.TestAndAddString(email) {
			suspects[email] = struct{}{}
		}
		return nil
	}); err != nil {
		return stats, errors.Wrap(err, "pass 1")
	}
	stats.Suspects = len(suspects)
	lg.Info("Pass 1 complete",
		zap.Int64("lines", stats.Lines),
		zap.Int64("invalid", stats.Invalid),
		zap.Int("suspects", stats.Suspects),
	)

	seen := make(map[string]struct{}, len(suspects))
	batch := make([]string, 0, im.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.repo.AddBatch(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "write batch")
		}
		stats.Inserted += n
		batch = batch[:0]
		return nil
	}

	lg.Info("Pass 2: writing unique addresses")
	if err := scanAll(ctx, files, func(line string) error {
		email, err := Normalize(line)
		if err != nil {
			return nil
		}
		if _, ok := suspects[email]; ok {
			if _, dup := seen[email]; dup {
				return nil
			}
			seen[email] = struct{}{}
		}
		stats.Unique++
		batch = append(batch, email)
		if len(batch) == cap(batch) {
			return flush()
		}
		return nil
	}); err != nil {
		return stats, errors.Wrap(err, "pass 2")
	}
	if err := flush(); err != nil {
		return stats, err
	}

	lg.Info("Import complete",
		zap.Int64("unique", stats.Unique),
		zap.Int64("inserted", stats.Inserted),
	)
	return stats, nil
}

// scanAll decompresses files concurrently and calls fn for every line from a
// single goroutine. An error from fn stops all readers.
func scanAll(ctx context.Context, files []string, fn func(line string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan string, 1024)

	var readers sync.WaitGroup
	for _, path := range files {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			return streamGzFile(ctx, path, func(line string) error {
				select {
				case lines <- line:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		})
	}
	g.Go(func() error {
		readers.Wait()
		close(lines)
		return nil
	})
	g.Go(func() error {
		for line := range lines {
			if err := fn(line); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
