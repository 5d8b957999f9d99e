package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT line_id, product_id, product_name, price, quantity, image
		FROM cart_items WHERE session_id = $1 ORDER BY position`

	deleteCartSQL = `DELETE FROM cart_items WHERE session_id = $1`
)

var cartColumns = []string{"session_id", "line_id", "position", "product_id", "product_name", "price", "quantity", "image"}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on the cart_items table. Each
// Save replaces the session's rows in a single transaction.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Load returns the session's lines in cart order.
func (r *CartRepository) Load(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	rows, err := r.pool.Query(ctx, loadCartSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.LineItem, error) {
		var li cart.LineItem
		err := row.Scan(&li.ID, &li.ProductID, &li.ProductName, &li.Price, &li.Quantity, &li.Image)
		return li, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	return cart.ValidLines(items), nil
}

// Save replaces the session's lines with items.
func (r *CartRepository) Save(ctx context.Context, sessionID string, items []cart.LineItem) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteCartSQL, sessionID); err != nil {
			return fmt.Errorf("deleting previous lines: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"cart_items"}, cartColumns,
			pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
				li := items[i]
				return []any{sessionID, li.ID, i, li.ProductID, li.ProductName, li.Price, li.Quantity, li.Image}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", sessionID, err)
	}
	return nil
}

// Delete removes every line of the session.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, sessionID); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}
