// Package recipes serves the user's recipe collection through the
// bounded-staleness read cache: a hit within the TTL costs no remote call; a
// miss fetches via the retry policy and populates the cache. Writes
// invalidate exactly the writing user's key before returning.
package recipes

import (
	"context"
	"errors"
	"log/slog"

	"larder/internal/cache"
	"larder/internal/domain"
	"larder/internal/remotestore"
	"larder/internal/retry"
)

// Service is the cached façade over the remote recipe store.
type Service struct {
	store  remotestore.RecipeStore
	prober remotestore.Prober
	loader *cache.Loader[[]domain.Recipe]
	retry  retry.Policy
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store remotestore.RecipeStore, prober remotestore.Prober, c cache.Cache, policy retry.Policy, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("recipe store is required")
	}
	if c == nil {
		return nil, errors.New("cache is required")
	}
	s := &Service{
		store:  store,
		prober: prober,
		loader: cache.NewLoader[[]domain.Recipe](c),
		retry:  policy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UserRecipes returns the user's recipes, served from cache while fresh.
func (s *Service) UserRecipes(ctx context.Context, userID string) ([]domain.Recipe, error) {
	return s.loader.Load(ctx, cache.UserKey(userID), func(ctx context.Context) ([]domain.Recipe, error) {
		return retry.DoValue(ctx, s.retry, "recipes.list", func(ctx context.Context) ([]domain.Recipe, error) {
			return s.store.List(ctx, userID)
		})
	})
}

// Save upserts a recipe and invalidates the owner's cache key first, so a
// read racing the write re-fetches rather than serving the stale list.
func (s *Service) Save(ctx context.Context, recipe domain.Recipe) error {
	if err := s.loader.Invalidate(ctx, cache.UserKey(recipe.UserID)); err != nil {
		s.logger.Warn("cache invalidation failed", "user_id", recipe.UserID, "error", err)
	}
	return s.retry.Do(ctx, "recipes.save", func(ctx context.Context) error {
		return s.store.Save(ctx, recipe)
	})
}

// Delete removes a recipe, invalidating the owner's cache key first.
func (s *Service) Delete(ctx context.Context, userID, recipeID string) error {
	if err := s.loader.Invalidate(ctx, cache.UserKey(userID)); err != nil {
		s.logger.Warn("cache invalidation failed", "user_id", userID, "error", err)
	}
	return s.retry.Do(ctx, "recipes.delete", func(ctx context.Context) error {
		return s.store.Delete(ctx, userID, recipeID)
	})
}

// IsAvailable is the lightweight probe higher layers run before committing
// to the remote path and its retry latency.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if s.prober == nil {
		return false
	}
	return s.prober.Ping(ctx) == nil
}
