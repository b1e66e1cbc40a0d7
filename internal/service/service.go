package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inventra/backend/internal/cache"
	"inventra/backend/internal/domain"
	"inventra/backend/internal/ledger"
	"inventra/backend/internal/logger"
	"inventra/backend/internal/receipt"
	"inventra/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	ledger   *ledger.Ledger
	cache    cache.ListCache
	cacheTTL time.Duration
	receipts receipt.Store
	log      zerolog.Logger
	now      func() time.Time

	genMu sync.Mutex
	gens  map[string]uint64
}

type Option func(*Service)

func WithListCache(c cache.ListCache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithReceiptStore(r receipt.Store) Option {
	return func(s *Service) {
		if r != nil {
			s.receipts = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = func() time.Time { return now().UTC() }
		}
	}
}

func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ledger:   ledger.New(),
		cache:    cache.NoopListCache{},
		cacheTTL: 30 * time.Second,
		receipts: receipt.NewMemoryStore(),
		log:      logger.Log.With().Str("component", "service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
		gens:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireActor(actor domain.Actor) error {
	if strings.TrimSpace(actor.Username) == "" {
		return fmt.Errorf("%w: actor is required", store.ErrValidation)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, fmt.Sprintf(format, args...))
}

func transition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// cachedList serves key from the list cache, loading and storing it on a
// miss. Cache failures only cost a reload. A load that overlaps an
// invalidation of the same key is returned but not left in the cache.
func cachedList[T any](ctx context.Context, s *Service, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	var cached []T
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("list cache read failed")
	} else if found {
		return cached, nil
	}

	gen := s.generation(key)
	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, items, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("list cache write failed")
		return items, nil
	}
	// invalidate bumps before it deletes, so checking after Set closes the gap.
	if s.generation(key) != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("list cache stale entry not dropped")
		}
	}
	return items, nil
}

func (s *Service) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	s.genMu.Lock()
	for _, k := range keys {
		s.gens[k]++
	}
	s.genMu.Unlock()

	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("keys", keys).Msg("list cache invalidation failed")
	}
}

func (s *Service) logAudit(actor domain.Actor, action string, entityType string, entityID string, detail string) {
	s.log.Info().
		Str("actor", actor.Username).
		Str("action", action).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("detail", detail).
		Msg("audit")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
