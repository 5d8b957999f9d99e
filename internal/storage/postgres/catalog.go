package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	productColumns = `p.id, p.name, p.description, p.price, COALESCE(p.category_id, ''), p.images,
		p.stock, p.featured, p.created_at, p.updated_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p ORDER BY p.created_at DESC, p.id`

	listFeaturedProductsSQL = `SELECT ` + productColumns + `
		FROM products p WHERE p.featured ORDER BY p.created_at DESC, p.id LIMIT $1`

	getProductSQL = `SELECT ` + productColumns + `
		FROM products p WHERE p.id = $1`

	listCollectionProductsSQL = `SELECT ` + productColumns + `
		FROM products p
		JOIN collection_products cp ON cp.product_id = p.id
		JOIN collections c ON c.id = cp.collection_id
		WHERE c.slug = $1
		ORDER BY cp.display_order, p.id`

	listCategoriesSQL = `SELECT id, name, slug, description, icon_name
		FROM categories ORDER BY name`

	listCollectionsSQL = `SELECT id, name, slug, description, featured_image
		FROM collections ORDER BY created_at, name`

	listPublishedPostsSQL = `SELECT id, title, slug, excerpt, content, featured_image, tags,
		published, created_at, updated_at
		FROM blog_posts WHERE published ORDER BY created_at DESC`
)

var _ catalog.Provider = (*CatalogProvider)(nil)

// CatalogProvider implements catalog.Provider backed by PostgreSQL.
type CatalogProvider struct {
	pool *pgxpool.Pool
}

// NewCatalogProvider returns a CatalogProvider that uses the given pool.
func NewCatalogProvider(pool *pgxpool.Pool) *CatalogProvider {
	return &CatalogProvider{pool: pool}
}

// Products returns every product, newest first.
func (r *CatalogProvider) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FeaturedProducts returns up to limit featured products.
func (r *CatalogProvider) FeaturedProducts(ctx context.Context, limit int) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listFeaturedProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Product returns a single product by its identifier.
func (r *CatalogProvider) Product(ctx context.Context, id string) (catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("getting product %q: %w", id, err)
	}
	return p, nil
}

// Categories returns all categories ordered by name.
func (r *CatalogProvider) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Icon)
		return c, err
	})
}

// Collections returns all collections.
func (r *CatalogProvider) Collections(ctx context.Context) ([]catalog.Collection, error) {
	rows, err := r.pool.Query(ctx, listCollectionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Collection, error) {
		var c catalog.Collection
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image)
		return c, err
	})
}

// CollectionProducts returns the products of a collection in display order.
func (r *CatalogProvider) CollectionProducts(ctx context.Context, slug string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listCollectionProductsSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("listing products of collection %q: %w", slug, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// PublishedPosts returns published blog posts, newest first.
func (r *CatalogProvider) PublishedPosts(ctx context.Context) ([]catalog.BlogPost, error) {
	rows, err := r.pool.Query(ctx, listPublishedPostsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing blog posts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.BlogPost, error) {
		var b catalog.BlogPost
		err := row.Scan(
			&b.ID, &b.Title, &b.Slug, &b.Excerpt, &b.Content, &b.Image, &b.Tags,
			&b.Published, &b.CreatedAt, &b.UpdatedAt,
		)
		return b, err
	})
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.Images,
		&p.Stock, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
