package newsletter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

type recordingRepo struct {
	*MemoryRepository

	mu       sync.Mutex
	batches  [][]string
	batchErr error
}

func (r *recordingRepo) AddBatch(ctx context.Context, emails []string) (int64, error) {
	r.mu.Lock()
	r.batches = append(r.batches, append([]string(nil), emails...))
	err := r.batchErr
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.MemoryRepository.AddBatch(ctx, emails)
}

func (r *recordingRepo) written() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []string
	for _, b := range r.batches {
		all = append(all, b...)
	}
	sort.Strings(all)
	return all
}

func TestImporter_Import(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "export1.gz", "ama@example.com", "KOFI@example.com", "garbage", "", "ama@example.com"),
		writeGz(t, dir, "export2.gz", "kofi@example.com", "esi@example.com", " Yaw@Example.com "),
		writeGz(t, dir, "export3.gz", "esi@example.com"),
	}

	repo := &recordingRepo{MemoryRepository: NewMemoryRepository()}
	im := NewImporter(repo, ImportConfig{ExpectedAddresses: 1000, BatchSize: 2})

	stats, err := im.Import(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, int64(9), stats.Lines)
	assert.Equal(t, int64(2), stats.Invalid)
	assert.Equal(t, int64(4), stats.Unique)
	assert.Equal(t, int64(4), stats.Inserted)
	assert.GreaterOrEqual(t, stats.Suspects, 3)
	assert.Equal(t, []string{"ama@example.com", "esi@example.com", "kofi@example.com", "yaw@example.com"}, repo.written())

	for _, b := range repo.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
}

func TestImporter_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeGz(t, dir, "export.gz", "ama@example.com", "esi@example.com")}

	repo := NewMemoryRepository()
	require.NoError(t, repo.Add(context.Background(), "ama@example.com"))

	stats, err := NewImporter(repo, ImportConfig{ExpectedAddresses: 100}).Import(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Unique)
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, 2, repo.Len())
}

func TestImporter_MissingFile(t *testing.T) {
	im := NewImporter(NewMemoryRepository(), ImportConfig{})

	_, err := im.Import(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")})
	require.Error(t, err)
}

func TestImporter_ManyDuplicates(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 0, 3000)
	for i := range 3000 {
		lines = append(lines, strings.Repeat("x", i%50+1)+"@example.com")
	}
	files := []string{
		writeGz(t, dir, "a.gz", lines...),
		writeGz(t, dir, "b.gz", lines...),
	}

	repo := NewMemoryRepository()
	stats, err := NewImporter(repo, ImportConfig{ExpectedAddresses: 50, FalsePositiveRate: 0.2}).Import(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, int64(50), stats.Unique)
	assert.Equal(t, 50, repo.Len())
}

func TestImporter_WriteFailureStopsImport(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 0, 5000)
	for i := range 5000 {
		lines = append(lines, fmt.Sprintf("user%d@example.com", i))
	}
	files := []string{writeGz(t, dir, "export.gz", lines...)}

	repo := &recordingRepo{
		MemoryRepository: NewMemoryRepository(),
		batchErr:         errors.New("connection reset"),
	}
	_, err := NewImporter(repo, ImportConfig{ExpectedAddresses: 5000, BatchSize: 10}).Import(context.Background(), files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write batch")
	assert.Len(t, repo.batches, 1)
	assert.Equal(t, 0, repo.Len())
}
