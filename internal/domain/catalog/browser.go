package catalog

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SortOrder orders the shop's product grid.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
)

// ParseSortOrder maps a query value to a SortOrder. Unknown and empty
// values fall back to SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(s); o {
	case SortPriceLow, SortPriceHigh:
		return o
	default:
		return SortNewest
	}
}

// BrowserConfig tunes page assembly.
type BrowserConfig struct {
	// FetchTimeout bounds every provider call.
	FetchTimeout time.Duration
	// FeaturedLimit is the number of products on the home page.
	FeaturedLimit int
}

// ShopQuery filters and orders the shop page.
type ShopQuery struct {
	// Category is a category ID or slug. Empty means all categories.
	Category string
	Sort     SortOrder
}

// ShopPage is the product grid with its category filter.
type ShopPage struct {
	Products   []Product
	Categories []Category
}

// BlogPage lists posts together with every tag available for filtering.
type BlogPage struct {
	Posts []BlogPost
	Tags  []string
}

// Browser assembles storefront pages from a Provider. Provider failures are
// logged and replaced by default content so a page always renders.
type Browser struct {
	provider Provider
	tracer   trace.Tracer
	cfg      BrowserConfig
	now      func() time.Time
}

// NewBrowser creates a Browser reading from provider.
func NewBrowser(provider Provider, cfg BrowserConfig, tracerProvider trace.TracerProvider) *Browser {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.FeaturedLimit <= 0 {
		cfg.FeaturedLimit = 8
	}
	return &Browser{
		provider: provider,
		tracer:   tracerProvider.Tracer("storefront/catalog"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Home returns the featured products.
func (b *Browser) Home(ctx context.Context) []Product {
	ctx, span := b.tracer.Start(ctx, "catalog.Home")
	defer span.End()

	products, err := fetch(ctx, b, "featured products", func(ctx context.Context) ([]Product, error) {
		return b.provider.FeaturedProducts(ctx, b.cfg.FeaturedLimit)
	})
	if err != nil {
		recordError(span, err)
		return []Product{}
	}
	return products
}

// Shop returns the filtered and sorted product grid. Products and categories
// are fetched concurrently and fail independently.
func (b *Browser) Shop(ctx context.Context, q ShopQuery) ShopPage {
	ctx, span := b.tracer.Start(ctx, "catalog.Shop", trace.WithAttributes(
		attribute.String("catalog.category", q.Category),
		attribute.String("catalog.sort", string(q.Sort)),
	))
	defer span.End()

	page := ShopPage{Products: []Product{}, Categories: []Category{}}

	var g errgroup.Group
	g.Go(func() error {
		products, err := fetch(ctx, b, "products", b.provider.Products)
		if err != nil {
			recordError(span, err)
			return nil
		}
		page.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := fetch(ctx, b, "categories", b.provider.Categories)
		if err != nil {
			recordError(span, err)
			return nil
		}
		page.Categories = categories
		return nil
	})
	_ = g.Wait()

	if q.Category != "" {
		id := resolveCategory(page.Categories, q.Category)
		page.Products = filter(page.Products, func(p Product) bool {
			return p.CategoryID == id
		})
	}
	page.Products = SortProducts(page.Products, q.Sort)
	span.SetAttributes(attribute.Int("catalog.products", len(page.Products)))
	return page
}

// Product returns a single product. ErrNotFound is returned as is.
func (b *Browser) Product(ctx context.Context, id string) (Product, error) {
	ctx, span := b.tracer.Start(ctx, "catalog.Product", trace.WithAttributes(
		attribute.String("catalog.product_id", id),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.FetchTimeout)
	defer cancel()

	p, err := b.provider.Product(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			recordError(span, err)
		}
		return Product{}, errors.Wrapf(err, "get product %q", id)
	}
	return p, nil
}

// Categories returns all categories, or none when the provider fails.
func (b *Browser) Categories(ctx context.Context) []Category {
	ctx, span := b.tracer.Start(ctx, "catalog.Categories")
	defer span.End()

	categories, err := fetch(ctx, b, "categories", b.provider.Categories)
	if err != nil {
		recordError(span, err)
		return []Category{}
	}
	return categories
}

// Collections returns the themed collections, falling back to the default
// set when the provider has none.
func (b *Browser) Collections(ctx context.Context) []Collection {
	ctx, span := b.tracer.Start(ctx, "catalog.Collections")
	defer span.End()

	collections, err := fetch(ctx, b, "collections", b.provider.Collections)
	if err != nil {
		recordError(span, err)
	}
	if len(collections) == 0 {
		return DefaultCollections()
	}
	return collections
}

// CollectionProducts returns the products of one collection in display
// order.
func (b *Browser) CollectionProducts(ctx context.Context, slug string) []Product {
	ctx, span := b.tracer.Start(ctx, "catalog.CollectionProducts", trace.WithAttributes(
		attribute.String("catalog.collection", slug),
	))
	defer span.End()

	products, err := fetch(ctx, b, "collection products", func(ctx context.Context) ([]Product, error) {
		return b.provider.CollectionProducts(ctx, slug)
	})
	if err != nil {
		recordError(span, err)
		return []Product{}
	}
	return products
}

// Blog returns published posts, optionally narrowed to one tag. Tags always
// lists every tag of the unfiltered posts in first-seen order.
func (b *Browser) Blog(ctx context.Context, tag string) BlogPage {
	ctx, span := b.tracer.Start(ctx, "catalog.Blog", trace.WithAttributes(
		attribute.String("catalog.tag", tag),
	))
	defer span.End()

	posts, err := fetch(ctx, b, "blog posts", b.provider.PublishedPosts)
	if err != nil {
		recordError(span, err)
	}
	if len(posts) == 0 {
		posts = DefaultPosts(b.now())
	}

	page := BlogPage{Posts: posts, Tags: Tags(posts)}
	if tag != "" {
		page.Posts = filter(posts, func(p BlogPost) bool { return p.HasTag(tag) })
	}
	return page
}

// SortProducts returns a sorted copy of products. SortNewest orders by
// creation time, newest first; ties keep provider order.
func SortProducts(products []Product, order SortOrder) []Product {
	out := slices.Clone(products)
	if out == nil {
		out = []Product{}
	}
	switch order {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	default:
		slices.SortStableFunc(out, func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return out
}

// Tags returns the distinct tags of posts in first-seen order.
func Tags(posts []BlogPost) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

func resolveCategory(categories []Category, v string) string {
	for _, c := range categories {
		if c.Slug == v {
			return c.ID
		}
	}
	return v
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// fetch runs one provider call under the fetch timeout and logs failures.
func fetch[T any](ctx context.Context, b *Browser, what string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.FetchTimeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Catalog fetch failed, using defaults",
			zap.String("fetch", what),
			zap.Error(err),
		)
		return v, errors.Wrapf(err, "fetch %s", what)
	}
	return v, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
