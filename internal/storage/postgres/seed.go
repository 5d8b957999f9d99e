package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	upsertCategorySQL = `INSERT INTO categories (id, name, slug, description, icon_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, slug = EXCLUDED.slug,
			description = EXCLUDED.description, icon_name = EXCLUDED.icon_name`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, category_id, images, stock, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			category_id = EXCLUDED.category_id, images = EXCLUDED.images, stock = EXCLUDED.stock,
			featured = EXCLUDED.featured, updated_at = now()`

	upsertCollectionSQL = `INSERT INTO collections (id, name, slug, description, featured_image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, slug = EXCLUDED.slug,
			description = EXCLUDED.description, featured_image = EXCLUDED.featured_image`

	deleteCollectionProductsSQL = `DELETE FROM collection_products WHERE collection_id = $1`

	insertCollectionProductSQL = `INSERT INTO collection_products (collection_id, product_id, display_order)
		VALUES ($1, $2, $3)`

	upsertPostSQL = `INSERT INTO blog_posts (id, title, slug, excerpt, content, featured_image, tags, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, slug = EXCLUDED.slug, excerpt = EXCLUDED.excerpt,
			content = EXCLUDED.content, featured_image = EXCLUDED.featured_image,
			tags = EXCLUDED.tags, published = EXCLUDED.published, updated_at = now()`
)

// UpsertDataset writes ds into the catalog tables in one transaction.
// Collection membership is replaced, everything else is upserted by ID.
func UpsertDataset(ctx context.Context, pool *pgxpool.Pool, ds *catalog.Dataset) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, c := range ds.Categories {
			b.Queue(upsertCategorySQL, c.ID, c.Name, c.Slug, c.Description, c.Icon)
		}
		for _, p := range ds.Products {
			images := p.Images
			if images == nil {
				images = []string{}
			}
			b.Queue(upsertProductSQL, p.ID, p.Name, p.Description, p.Price, p.CategoryID,
				images, p.Stock, p.Featured, p.CreatedAt)
		}
		for _, c := range ds.Collections {
			b.Queue(upsertCollectionSQL, c.ID, c.Name, c.Slug, c.Description, c.Image)
			b.Queue(deleteCollectionProductsSQL, c.ID)
			for i, id := range ds.Members[c.Slug] {
				b.Queue(insertCollectionProductSQL, c.ID, id, i)
			}
		}
		for _, p := range ds.Posts {
			tags := p.Tags
			if tags == nil {
				tags = []string{}
			}
			b.Queue(upsertPostSQL, p.ID, p.Title, p.Slug, p.Excerpt, p.Content, p.Image,
				tags, p.Published, p.CreatedAt)
		}

		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("upserting catalog dataset: %w", err)
		}
		return nil
	})
}
