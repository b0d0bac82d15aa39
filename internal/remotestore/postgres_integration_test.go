//go:build integration

package remotestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"larder/internal/domain"
	platformpg "larder/internal/platform/postgres"
	"larder/internal/remotestore"
	"larder/pkg/platform/sentinel"
	"larder/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *remotestore.Postgres
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.Bootstrap(context.Background(), s.pg.DB))
	s.store = remotestore.NewPostgres(s.pg.DB)
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(),
		"user_profiles", "pantry_items", "recipes", "recipe_ratings",
		"shopping_lists", "migration_backups"))
}

func (s *PostgresSuite) TestProfileInsertIsWriteOnce() {
	ctx := context.Background()
	now := time.Now().UTC()
	profile := domain.Profile{
		UserID:     "user-1",
		Allergies:  []string{"peanuts"},
		SpiceLevel: "hot",
		CreatedAt:  now, UpdatedAt: now,
	}

	s.Require().NoError(s.store.Profiles().Insert(ctx, profile))

	got, err := s.store.Profiles().Get(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal([]string{"peanuts"}, got.Allergies)
	s.Equal("hot", got.SpiceLevel)

	err = s.store.Profiles().Insert(ctx, profile)
	s.ErrorIs(err, sentinel.ErrConflict, "duplicate key must map to the conflict sentinel")

	_, err = s.store.Profiles().Get(ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestPantryBatchIsAllOrNothing() {
	ctx := context.Background()
	now := time.Now().UTC()
	batch := []domain.PantryItem{
		{ID: "p1", UserID: "user-1", Name: "rice", Quantity: 1, Unit: "kg", Location: "pantry", Category: "pantry staples", CreatedAt: now},
		{ID: "p2", UserID: "user-1", Name: "milk", Quantity: 2, Unit: "l", Location: "fridge", Category: "dairy & eggs", CreatedAt: now},
	}
	s.Require().NoError(s.store.Pantry().InsertBatch(ctx, batch))

	count, err := s.store.Pantry().Count(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(2, count)

	// One colliding row poisons the whole batch: the fresh row must roll back.
	err = s.store.Pantry().InsertBatch(ctx, []domain.PantryItem{
		{ID: "p3", UserID: "user-1", Name: "flour", Quantity: 1, Unit: "kg", Location: "pantry", Category: "pantry staples", CreatedAt: now},
		{ID: "p1", UserID: "user-1", Name: "rice", Quantity: 1, Unit: "kg", Location: "pantry", Category: "pantry staples", CreatedAt: now},
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	count, err = s.store.Pantry().Count(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresSuite) TestRecipeSaveUpsertsAndScopesByUser() {
	ctx := context.Background()
	now := time.Now().UTC()
	recipe := domain.Recipe{
		ID: "r1", UserID: "user-1", Title: "Pesto Pasta",
		Ingredients: []string{"pasta", "pesto"},
		Steps:       []string{"boil", "stir"},
		Tags:        []string{"quick"},
		CreatedAt:   now,
	}
	s.Require().NoError(s.store.Recipes().Save(ctx, recipe))

	recipe.Title = "Pesto Pasta v2"
	s.Require().NoError(s.store.Recipes().Save(ctx, recipe), "save is an upsert, not write-once")

	got, err := s.store.Recipes().List(ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Pesto Pasta v2", got[0].Title)
	s.Equal([]string{"pasta", "pesto"}, got[0].Ingredients)

	// Same recipe id under another user is a distinct row.
	other := recipe
	other.UserID = "user-2"
	s.Require().NoError(s.store.Recipes().Save(ctx, other))
	count, err := s.store.Recipes().Count(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(1, count)

	s.Require().NoError(s.store.Recipes().Delete(ctx, "user-1", "r1"))
	count, err = s.store.Recipes().Count(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *PostgresSuite) TestRatingCompositeKeyIsIdempotent() {
	ctx := context.Background()
	rating := domain.RecipeRating{
		ID: domain.RatingID("user-1", "r1"), UserID: "user-1", RecipeID: "r1",
		Rating: 5, Review: "great", CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Ratings().Insert(ctx, rating))
	s.ErrorIs(s.store.Ratings().Insert(ctx, rating), sentinel.ErrConflict)

	count, err := s.store.Ratings().Count(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresSuite) TestShoppingListRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC()
	list := domain.ShoppingList{
		ID: "l1", UserID: "user-1", Name: "Groceries", IsActive: true,
		Items: []domain.ShoppingListItem{
			{ID: "i1", Name: "milk", Quantity: 2, EstimatedPrice: 3.50},
			{ID: "i2", Name: "bread", Quantity: 1, EstimatedPrice: 2.25, Purchased: true},
		},
		CreatedAt: now, UpdatedAt: now,
	}
	list.Recalculate()
	s.Require().NoError(s.store.ShoppingLists().Upsert(ctx, list))

	got, err := s.store.ShoppingLists().Get(ctx, "user-1", "l1")
	s.Require().NoError(err)
	s.Len(got.Items, 2)
	s.InDelta(5.75, got.TotalEstimatedCost, 1e-9)
	s.Equal(1, got.CompletedItems, "derived fields are recomputed on scan")

	got.Items = got.Items[:1]
	got.Recalculate()
	s.Require().NoError(s.store.ShoppingLists().Upsert(ctx, got))

	lists, err := s.store.ShoppingLists().List(ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(lists, 1)
	s.Len(lists[0].Items, 1)

	s.Require().NoError(s.store.ShoppingLists().Delete(ctx, "user-1", "l1"))
	_, err = s.store.ShoppingLists().Get(ctx, "user-1", "l1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestBackupInsert() {
	ctx := context.Background()
	s.Require().NoError(s.store.Backups().Insert(ctx, domain.BackupRecord{
		UserID: "user-1", Ciphertext: "b64-opaque", CreatedAt: time.Now().UTC(),
	}))

	var count int
	s.Require().NoError(s.pg.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM migration_backups WHERE user_id = $1`, "user-1").Scan(&count))
	s.Equal(1, count)
}
