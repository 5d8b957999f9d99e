// Package sqlite implements the cart repository on a local SQLite file for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS cart_lines (
		session_id   TEXT NOT NULL,
		line_id      TEXT NOT NULL,
		position     INTEGER NOT NULL,
		product_id   TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		price        TEXT NOT NULL,
		quantity     INTEGER NOT NULL,
		image        TEXT NOT NULL DEFAULT '',
		saved_at     INTEGER NOT NULL DEFAULT (unixepoch()),
		PRIMARY KEY (session_id, line_id)
	)`

	loadLinesSQL = `SELECT line_id, product_id, product_name, price, quantity, image
		FROM cart_lines WHERE session_id = ? ORDER BY position`

	insertLineSQL = `INSERT INTO cart_lines (session_id, line_id, position, product_id, product_name, price, quantity, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	deleteLinesSQL = `DELETE FROM cart_lines WHERE session_id = ?`
)

// Open opens (creating if needed) the SQLite database at path and applies
// the cart schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cart schema: %w", err)
	}
	return db, nil
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on the cart_lines table.
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository returns a CartRepository using db.
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Load returns the session's lines in cart order.
func (r *CartRepository) Load(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, loadLinesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var items []cart.LineItem
	for rows.Next() {
		var (
			li    cart.LineItem
			price string
		)
		if err := rows.Scan(&li.ID, &li.ProductID, &li.ProductName, &price, &li.Quantity, &li.Image); err != nil {
			return nil, fmt.Errorf("scanning cart line: %w", err)
		}
		if li.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price of line %q: %w", li.ID, err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	return cart.ValidLines(items), nil
}

// Save replaces the session's lines with items in one transaction.
func (r *CartRepository) Save(ctx context.Context, sessionID string, items []cart.LineItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteLinesSQL, sessionID); err != nil {
		return fmt.Errorf("deleting previous lines: %w", err)
	}

	if len(items) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertLineSQL)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, li := range items {
			if _, err := stmt.ExecContext(ctx,
				sessionID, li.ID, i, li.ProductID, li.ProductName, li.Price.String(), li.Quantity, li.Image,
			); err != nil {
				return fmt.Errorf("inserting line %q: %w", li.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving cart %q: %w", sessionID, err)
	}
	return nil
}

// Delete removes every line of the session.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, deleteLinesSQL, sessionID); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}
