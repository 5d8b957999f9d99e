package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

var _ Provider = (*Cache)(nil)

// Cache is a read-through Provider decorator. Successful results are kept
// for a TTL; errors are never cached. Callers must not modify returned
// slices.
type Cache struct {
	next    Provider
	entries *expirable.LRU[string, any]
	group   singleflight.Group
}

// NewCache wraps next with an LRU of at most size entries living for ttl.
func NewCache(next Provider, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	return &Cache{
		next:    next,
		entries: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	return cached(c, "products", func() ([]Product, error) {
		return c.next.Products(ctx)
	})
}

func (c *Cache) FeaturedProducts(ctx context.Context, limit int) ([]Product, error) {
	return cached(c, "featured:"+strconv.Itoa(limit), func() ([]Product, error) {
		return c.next.FeaturedProducts(ctx, limit)
	})
}

func (c *Cache) Product(ctx context.Context, id string) (Product, error) {
	return cached(c, "product:"+id, func() (Product, error) {
		return c.next.Product(ctx, id)
	})
}

func (c *Cache) Categories(ctx context.Context) ([]Category, error) {
	return cached(c, "categories", func() ([]Category, error) {
		return c.next.Categories(ctx)
	})
}

func (c *Cache) Collections(ctx context.Context) ([]Collection, error) {
	return cached(c, "collections", func() ([]Collection, error) {
		return c.next.Collections(ctx)
	})
}

func (c *Cache) CollectionProducts(ctx context.Context, slug string) ([]Product, error) {
	return cached(c, "collection:"+slug, func() ([]Product, error) {
		return c.next.CollectionProducts(ctx, slug)
	})
}

func (c *Cache) PublishedPosts(ctx context.Context) ([]BlogPost, error) {
	return cached(c, "posts", func() ([]BlogPost, error) {
		return c.next.PublishedPosts(ctx)
	})
}

func cached[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.entries.Get(key); ok {
		return v.(T), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		c.entries.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
