// Package remotestore is the boundary to the durable multi-device backend.
// Every call is scoped by authenticated user id and may fail transiently;
// callers wrap these operations in the retry policy and decide fallback.
//
// Stores are interface-driven so services run against Postgres in production
// and the in-memory implementation in tests and fault-injection scenarios.
package remotestore

import (
	"context"

	"larder/internal/domain"
)

type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Insert(ctx context.Context, profile domain.Profile) error
}

type PantryStore interface {
	List(ctx context.Context, userID string) ([]domain.PantryItem, error)
	Count(ctx context.Context, userID string) (int, error)
	// InsertBatch is all-or-nothing: either every item lands or none do.
	InsertBatch(ctx context.Context, items []domain.PantryItem) error
}

type RecipeStore interface {
	List(ctx context.Context, userID string) ([]domain.Recipe, error)
	Count(ctx context.Context, userID string) (int, error)
	InsertBatch(ctx context.Context, recipes []domain.Recipe) error
	Save(ctx context.Context, recipe domain.Recipe) error
	Delete(ctx context.Context, userID, recipeID string) error
}

type RatingStore interface {
	Count(ctx context.Context, userID string) (int, error)
	Insert(ctx context.Context, rating domain.RecipeRating) error
}

type ShoppingListStore interface {
	List(ctx context.Context, userID string) ([]domain.ShoppingList, error)
	Get(ctx context.Context, userID, listID string) (domain.ShoppingList, error)
	Upsert(ctx context.Context, list domain.ShoppingList) error
	Delete(ctx context.Context, userID, listID string) error
}

type BackupStore interface {
	Insert(ctx context.Context, backup domain.BackupRecord) error
}

// Prober is the lightweight availability check higher layers run before
// incurring retry latency on the full remote path.
type Prober interface {
	Ping(ctx context.Context) error
}
