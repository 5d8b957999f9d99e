// Package redis implements the cart repository on Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/extra/redisotel/v8"
	goredis "github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	keyPrefix  = "storefront:cart:"
	linesField = "lines"
	savedField = "saved_at"
)

// NewClient connects to the Redis server at url (redis://host:port/db) and
// traces every command through tracerProvider.
func NewClient(ctx context.Context, url string, tracerProvider trace.TracerProvider) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	client.AddHook(redisotel.NewTracingHook(redisotel.WithTracerProvider(tracerProvider)))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores one hash per session holding the encoded lines.
// Keys expire after ttl without writes.
type CartRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewCartRepository returns a CartRepository using client.
func NewCartRepository(client *goredis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

// Load returns the stored lines of the session, or none.
func (r *CartRepository) Load(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	data, err := r.client.HGet(ctx, keyPrefix+sessionID, linesField).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	items, err := cart.DecodeLines(data)
	if err != nil {
		return nil, fmt.Errorf("loading cart %q: %w", sessionID, err)
	}
	return items, nil
}

// Save replaces the stored lines and refreshes the expiry.
func (r *CartRepository) Save(ctx context.Context, sessionID string, items []cart.LineItem) error {
	key := keyPrefix + sessionID
	if len(items) == 0 {
		return r.Delete(ctx, sessionID)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, linesField, cart.EncodeLines(items), savedField, time.Now().Unix())
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", sessionID, err)
	}
	return nil
}

// Delete removes the session's hash.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("deleting cart %q: %w", sessionID, err)
	}
	return nil
}
