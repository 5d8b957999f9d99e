package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Mutation names recorded on the mutation counter.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"
	OpClear  = "clear"
	OpEnd    = "end"
)

// SessionsConfig bounds the set of carts kept in memory.
type SessionsConfig struct {
	// MaxSessions is the number of live carts kept in memory. Older carts are
	// evicted and restored from the Repository on their next access.
	MaxSessions int
	// IdleTTL evicts carts that were not touched for this long.
	IdleTTL time.Duration
	// LoadTimeout bounds a restore from the Repository. The restore is not
	// tied to the cancellation of the request that triggered it.
	LoadTimeout time.Duration
}

type session struct {
	// mu serializes mutate-then-save so snapshots reach the repository in
	// mutation order.
	mu    sync.Mutex
	store *Store
	// detached carts stand in for a session whose restore failed. They are
	// neither cached nor saved, so the persisted cart survives the outage.
	detached bool
}

// Sessions owns the carts of all active sessions. It is created once at
// application start and passed to the HTTP handlers.
type Sessions struct {
	repo        Repository
	loadTimeout time.Duration
	live        *expirable.LRU[string, *session]
	loads       singleflight.Group
	mutations   metric.Int64Counter
	opts        []Option
}

// NewSessions creates a Sessions registry persisting through repo.
func NewSessions(repo Repository, cfg SessionsConfig, meterProvider metric.MeterProvider, opts ...Option) (*Sessions, error) {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10_000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 5 * time.Second
	}

	meter := meterProvider.Meter("storefront/cart")
	mutations, err := meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Number of cart mutations by operation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutations counter")
	}

	return &Sessions{
		repo:        repo,
		loadTimeout: cfg.LoadTimeout,
		live:        expirable.NewLRU[string, *session](cfg.MaxSessions, nil, cfg.IdleTTL),
		mutations:   mutations,
		opts:        opts,
	}, nil
}

// Get returns the cart of a session, restoring persisted state the first
// time the session is seen. A failed restore yields an empty cart that is
// not remembered, so the next access retries the restore.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	return s.session(ctx, sessionID).store
}

// AddItem adds c to the session's cart and persists the result.
func (s *Sessions) AddItem(ctx context.Context, sessionID string, c Candidate) (*Store, LineItem) {
	var li LineItem
	store := s.mutate(ctx, sessionID, OpAdd, func(st *Store) bool {
		li = st.AddItem(c)
		return true
	})
	return store, li
}

// RemoveItem removes a line from the session's cart.
func (s *Sessions) RemoveItem(ctx context.Context, sessionID, lineID string) *Store {
	return s.mutate(ctx, sessionID, OpRemove, func(st *Store) bool {
		return st.RemoveItem(lineID)
	})
}

// UpdateQuantity sets the quantity of a line in the session's cart.
func (s *Sessions) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) *Store {
	return s.mutate(ctx, sessionID, OpUpdate, func(st *Store) bool {
		return st.UpdateQuantity(lineID, quantity)
	})
}

// Clear empties the session's cart.
func (s *Sessions) Clear(ctx context.Context, sessionID string) *Store {
	return s.mutate(ctx, sessionID, OpClear, func(st *Store) bool {
		st.Clear()
		return true
	})
}

// End clears the session's cart and forgets it, including persisted state.
func (s *Sessions) End(ctx context.Context, sessionID string) {
	sess := s.session(ctx, sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.store.Clear()
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", OpEnd)))

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		zctx.From(ctx).Warn("Delete cart state failed",
			zap.String("session", sessionID),
			zap.Error(err),
		)
	}
	s.live.Remove(sessionID)
}

// mutate applies fn to the session's cart and, if fn reports a change,
// writes a snapshot to the repository. Save failures are logged only: the
// in-memory cart stays authoritative. Detached carts are never saved.
func (s *Sessions) mutate(ctx context.Context, sessionID, op string, fn func(*Store) bool) *Store {
	sess := s.session(ctx, sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !fn(sess.store) {
		return sess.store
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))

	if sess.detached {
		zctx.From(ctx).Warn("Cart state unavailable, mutation not persisted",
			zap.String("session", sessionID),
			zap.String("op", op),
		)
		return sess.store
	}
	if err := s.repo.Save(ctx, sessionID, sess.store.Items()); err != nil {
		zctx.From(ctx).Warn("Save cart state failed",
			zap.String("session", sessionID),
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return sess.store
}

func (s *Sessions) session(ctx context.Context, sessionID string) *session {
	if sess, ok := s.live.Get(sessionID); ok {
		return sess
	}

	v, err, _ := s.loads.Do(sessionID, func() (any, error) {
		if sess, ok := s.live.Get(sessionID); ok {
			return sess, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		items, err := s.repo.Load(loadCtx, sessionID)
		if err != nil {
			return nil, err
		}
		sess := &session{store: Restore(items, s.opts...)}
		s.live.Add(sessionID, sess)
		return sess, nil
	})
	if err != nil {
		zctx.From(ctx).Warn("Restore cart state failed, serving empty cart",
			zap.String("session", sessionID),
			zap.Error(err),
		)
		return &session{store: NewStore(s.opts...), detached: true}
	}
	return v.(*session)
}
