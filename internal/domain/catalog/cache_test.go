package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{products: testProducts(), categories: testCategories()}
	c := NewCache(p, 16, time.Minute)

	for range 3 {
		products, err := c.Products(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 3)

		_, err = c.Categories(ctx)
		require.NoError(t, err)

		_, err = c.FeaturedProducts(ctx, 8)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, p.calls["products"])
	assert.Equal(t, 1, p.calls["categories"])
	assert.Equal(t, 1, p.calls["featured"])

	c.Purge()
	_, err := c.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls["products"])
}

func TestCache_KeysByArgument(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{products: testProducts()}
	c := NewCache(p, 16, time.Minute)

	_, err := c.CollectionProducts(ctx, "accra-nights")
	require.NoError(t, err)
	_, err = c.CollectionProducts(ctx, "street-essence")
	require.NoError(t, err)
	_, err = c.CollectionProducts(ctx, "accra-nights")
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls["collection:accra-nights"])
	assert.Equal(t, 1, p.calls["collection:street-essence"])
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{err: errors.New("timeout")}
	c := NewCache(p, 16, time.Minute)

	_, err := c.Collections(ctx)
	require.Error(t, err)

	p.err = nil
	p.collections = DefaultCollections()
	got, err := c.Collections(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, 2, p.calls["collections"])

	_, err = c.Product(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.Product(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, p.calls["product"])
}

func TestCache_Expires(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{posts: DefaultPosts(base)}
	c := NewCache(p, 16, 10*time.Millisecond)

	_, err := c.PublishedPosts(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if _, err := c.PublishedPosts(ctx); err != nil {
			return false
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls["posts"] > 1
	}, time.Second, 5*time.Millisecond)
}
