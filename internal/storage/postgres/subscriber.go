package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/newsletter"
)

const (
	insertSubscriberSQL = `INSERT INTO newsletter_subscribers (email) VALUES ($1)`

	insertSubscribersSQL = `INSERT INTO newsletter_subscribers (email)
		SELECT unnest($1::text[])
		ON CONFLICT (email) DO NOTHING`

	uniqueViolation = "23505"
)

var _ newsletter.Repository = (*SubscriberRepository)(nil)

// SubscriberRepository implements newsletter.Repository backed by PostgreSQL.
type SubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriberRepository returns a SubscriberRepository that uses the given pool.
func NewSubscriberRepository(pool *pgxpool.Pool) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

// Add inserts a subscriber. A duplicate address yields
// newsletter.ErrAlreadySubscribed.
func (r *SubscriberRepository) Add(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, insertSubscriberSQL, email); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return newsletter.ErrAlreadySubscribed
		}
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	return nil
}

// AddBatch inserts subscribers, skipping existing addresses.
func (r *SubscriberRepository) AddBatch(ctx context.Context, emails []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, insertSubscribersSQL, emails)
	if err != nil {
		return 0, fmt.Errorf("inserting %d subscribers: %w", len(emails), err)
	}
	return tag.RowsAffected(), nil
}
