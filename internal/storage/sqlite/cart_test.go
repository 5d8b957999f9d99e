package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/storefront/internal/domain/cart"
)

func openTestDB(t *testing.T, path string) *CartRepository {
	t.Helper()
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCartRepository(db)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t, filepath.Join(t.TempDir(), "cart.db"))

	got, err := repo.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)

	items := []cart.LineItem{
		{ID: "l1", ProductID: "p1", ProductName: "Kente Tee", Price: decimal.RequireFromString("45"), Quantity: 2},
		{ID: "l2", ProductID: "p2", ProductName: "Cap", Price: decimal.RequireFromString("19.99"), Quantity: 1, Image: "cap.jpg"},
	}
	require.NoError(t, repo.Save(ctx, "sess-1", items))
	require.NoError(t, repo.Save(ctx, "sess-2", items[1:]))

	got, err = repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l1", got[0].ID)
	assert.Equal(t, 2, got[0].Quantity)
	assert.True(t, items[1].Price.Equal(got[1].Price))
	assert.Equal(t, "cap.jpg", got[1].Image)

	require.NoError(t, repo.Save(ctx, "sess-1", items[1:]))
	got, err = repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l2", got[0].ID)

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	got, err = repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.Load(ctx, "sess-2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCartRepository_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cart.db")

	first, err := cart.NewSessions(openTestDB(t, path), cart.SessionsConfig{}, noop.NewMeterProvider())
	require.NoError(t, err)
	first.AddItem(ctx, "sess-1", cart.Candidate{ProductID: "p1", Price: decimal.RequireFromString("25"), Quantity: 2})
	first.AddItem(ctx, "sess-1", cart.Candidate{ProductID: "p1", Price: decimal.RequireFromString("25"), Quantity: 1})

	second, err := cart.NewSessions(openTestDB(t, path), cart.SessionsConfig{}, noop.NewMeterProvider())
	require.NoError(t, err)
	store := second.Get(ctx, "sess-1")

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 3, store.ItemCount())
	assert.True(t, decimal.RequireFromString("75").Equal(store.Total()))
}

func TestCartRepository_LoadDropsInvalidLines(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t, filepath.Join(t.TempDir(), "cart.db"))

	rows := []struct {
		lineID, productID string
		quantity          int
	}{
		{"l1", "p1", 2},
		{"l2", "", 1},
		{"l3", "p3", 0},
		{"l4", "p4", -5},
	}
	for i, row := range rows {
		_, err := repo.db.ExecContext(ctx, insertLineSQL, "sess-1", row.lineID, i, row.productID, "", "10", row.quantity, "")
		require.NoError(t, err)
	}

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].ID)
}
