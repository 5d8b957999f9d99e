// Package catalog reads the storefront's product catalog, collections and
// blog posts from an external provider and assembles them into pages.
package catalog

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Product is a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  string
	Images      []string
	Stock       int
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image returns the primary product image, or an empty string.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Category groups products in the shop.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Icon        string
}

// Collection is a curated, themed set of products.
type Collection struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Image       string
}

// BlogPost is an article shown on the blog page.
type BlogPost struct {
	ID        string
	Title     string
	Slug      string
	Excerpt   string
	Content   string
	Image     string
	Tags      []string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTag reports whether the post is tagged with tag.
func (b BlogPost) HasTag(tag string) bool {
	return slices.Contains(b.Tags, tag)
}

// Provider is the read side of the hosted catalog.
type Provider interface {
	Products(ctx context.Context) ([]Product, error)
	FeaturedProducts(ctx context.Context, limit int) ([]Product, error)
	Product(ctx context.Context, id string) (Product, error)
	Categories(ctx context.Context) ([]Category, error)
	Collections(ctx context.Context) ([]Collection, error)
	// CollectionProducts returns the products of a collection in display order.
	CollectionProducts(ctx context.Context, slug string) ([]Product, error)
	// PublishedPosts returns published posts, newest first.
	PublishedPosts(ctx context.Context) ([]BlogPost, error)
}
