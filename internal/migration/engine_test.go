package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"larder/internal/domain"
	"larder/internal/localstore"
	"larder/internal/remotestore"
	"larder/internal/retry"
)

const testUser = "user-1"

type EngineSuite struct {
	suite.Suite
	local  *localstore.Memory
	remote *remotestore.Memory
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.local = localstore.NewMemory()
	s.remote = remotestore.NewMemory()

	policy := retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond}
	var err error
	s.engine, err = New(s.local, Remote{
		Profiles: s.remote.Profiles(),
		Pantry:   s.remote.Pantry(),
		Recipes:  s.remote.Recipes(),
		Ratings:  s.remote.Ratings(),
		Backups:  s.remote.Backups(),
	}, policy, "test-backup-key")
	s.Require().NoError(err)
}

func (s *EngineSuite) seedPantry(n int) {
	items := make([]domain.PantryItem, 0, n)
	names := []string{"rice", "olive oil", "chicken breast", "milk", "flour"}
	for i := 0; i < n; i++ {
		items = append(items, domain.PantryItem{Name: names[i%len(names)]})
	}
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyPantryInventory, items))
}

func (s *EngineSuite) seedProfile() {
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyProfileState, domain.LocalAppState{
		Name:             "sam",
		Allergies:        []string{"peanuts"},
		FavoriteCuisines: []string{"italian"},
	}))
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyUserPreferences, domain.Preferences{
		SpiceLevel: "hot",
	}))
}

// =============================================================================
// NeedsMigration
// =============================================================================

func (s *EngineSuite) TestNeedsMigration() {
	ctx := context.Background()

	s.Run("empty local store needs nothing", func() {
		s.False(s.engine.NeedsMigration(ctx, testUser))
		s.Equal(domain.MigrationNotNeeded, s.engine.State(testUser))
	})

	s.Run("local data and no remote profile needs migration", func() {
		s.seedPantry(3)
		s.True(s.engine.NeedsMigration(ctx, testUser))
		s.Equal(domain.MigrationNeeded, s.engine.State(testUser))
	})

	s.Run("existing remote profile needs nothing", func() {
		s.seedPantry(3)
		s.Require().NoError(s.remote.Profiles().Insert(ctx, domain.Profile{UserID: testUser}))
		s.False(s.engine.NeedsMigration(ctx, testUser))
	})

	s.Run("fails closed on remote probe error", func() {
		s.seedPantry(3)
		s.remote.SetFailing(errors.New("connection refused"))
		s.False(s.engine.NeedsMigration(ctx, testUser))
	})
}

func (s *EngineSuite) TestDismissIsTerminalForSession() {
	ctx := context.Background()
	s.seedPantry(1)
	s.True(s.engine.NeedsMigration(ctx, testUser))

	s.engine.Dismiss(testUser)
	s.Equal(domain.MigrationNotNeeded, s.engine.State(testUser))
}

// =============================================================================
// Migrate
// =============================================================================

func (s *EngineSuite) TestMigratePantryAndProfile() {
	ctx := context.Background()
	s.seedProfile()
	s.seedPantry(3)

	result := s.engine.Migrate(ctx, testUser)

	s.True(result.Success)
	s.True(result.UserProfile)
	s.True(result.Preferences)
	s.Equal(3, result.PantryItems)
	s.Equal(0, result.Recipes)
	s.Equal(0, result.Ratings)
	s.Empty(result.Errors)
	s.Equal(domain.MigrationComplete, s.engine.State(testUser))

	profile, err := s.remote.Profiles().Get(ctx, testUser)
	s.Require().NoError(err)
	s.Equal("hot", profile.SpiceLevel, "preferences override app state")
	s.Equal([]string{"peanuts"}, profile.Allergies)
	s.Equal(domain.DefaultServingSize, profile.ServingSize, "unset fields get defaults")

	count, err := s.remote.Pantry().Count(ctx, testUser)
	s.Require().NoError(err)
	s.Equal(3, count)

	items, err := s.remote.Pantry().List(ctx, testUser)
	s.Require().NoError(err)
	for _, item := range items {
		s.Equal(testUser, item.UserID)
		s.NotEmpty(item.ID)
		s.Equal(float64(domain.DefaultQuantity), item.Quantity)
		s.Equal(domain.DefaultUnit, item.Unit)
		s.Equal(domain.DefaultLocation, item.Location)
		s.NotEqual("", item.Category)
	}
}

func (s *EngineSuite) TestMigratePantryOnlyReportsProfileError() {
	ctx := context.Background()
	s.seedPantry(3)

	result := s.engine.Migrate(ctx, testUser)

	s.True(result.Success, "any successful category makes the migration a success")
	s.False(result.UserProfile)
	s.Equal(3, result.PantryItems)
	s.Len(result.Errors, 1)
	s.Contains(result.Errors[0], "profile")
}

func (s *EngineSuite) TestMigrateRecipesAndRatings() {
	ctx := context.Background()
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyProfileState, domain.LocalAppState{
		Name: "sam",
		GeneratedRecipes: []domain.Recipe{
			{ID: "r1", Title: "Pesto Pasta"},
			{ID: "r2", Title: "Chicken Curry"},
		},
	}))
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyRecipeRatings, map[string]int{"r1": 5}))
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyRecipeReviews, map[string]string{
		"r1": "family favourite",
		"r2": "too spicy",
	}))

	result := s.engine.Migrate(ctx, testUser)

	s.True(result.Success)
	s.Equal(2, result.Recipes)
	s.Equal(2, result.Ratings, "a review without a rating still produces a row")

	recipes, err := s.remote.Recipes().List(ctx, testUser)
	s.Require().NoError(err)
	s.Len(recipes, 2)
	ids := []string{recipes[0].ID, recipes[1].ID}
	s.Contains(ids, "r1", "local recipe ids are preserved")

	count, err := s.remote.Ratings().Count(ctx, testUser)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *EngineSuite) TestMigrateEmptySnapshotIsSoftFailure() {
	result := s.engine.Migrate(context.Background(), testUser)

	s.False(result.Success)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "no local data")
	s.Equal(0, s.remote.BackupCount(), "no backup for an empty migration")
}

func (s *EngineSuite) TestMigrateTwiceCreatesNoDuplicates() {
	ctx := context.Background()
	s.seedProfile()
	s.seedPantry(3)
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyRecipeRatings, map[string]int{"r1": 4}))

	first := s.engine.Migrate(ctx, testUser)
	s.Require().True(first.Success)
	s.Equal(3, first.PantryItems)
	s.Equal(1, first.Ratings)

	second := s.engine.Migrate(ctx, testUser)
	s.True(second.UserProfile, "existing profile row is an idempotent outcome")
	s.Equal(0, second.PantryItems, "deterministic ids make the re-run collide")
	s.Equal(0, second.Ratings, "composite key rejects the duplicate rating")

	pantryCount, err := s.remote.Pantry().Count(ctx, testUser)
	s.Require().NoError(err)
	s.Equal(3, pantryCount)

	ratingCount, err := s.remote.Ratings().Count(ctx, testUser)
	s.Require().NoError(err)
	s.Equal(1, ratingCount)

	profileCount := 0
	if _, err := s.remote.Profiles().Get(ctx, testUser); err == nil {
		profileCount = 1
	}
	s.Equal(1, profileCount)
}

func (s *EngineSuite) TestMigrateCategoriesAreIndependent() {
	ctx := context.Background()
	// Force the pantry batch to collide while everything else succeeds.
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyPantryInventory, []domain.PantryItem{
		{ID: "p1", Name: "rice"},
		{ID: "p2", Name: "milk"},
	}))
	s.Require().NoError(s.remote.Pantry().InsertBatch(ctx, []domain.PantryItem{
		{ID: "p1", UserID: testUser, Name: "rice"},
	}))
	s.Require().NoError(localstore.WriteJSON(s.local, localstore.KeyProfileState, domain.LocalAppState{
		Name:             "sam",
		GeneratedRecipes: []domain.Recipe{{ID: "r1", Title: "Pesto Pasta"}},
	}))

	result := s.engine.Migrate(ctx, testUser)

	s.True(result.Success)
	s.Equal(0, result.PantryItems, "pantry is all-or-nothing within the category")
	s.Equal(1, result.Recipes, "a pantry failure does not block recipes")
	s.True(result.UserProfile)
	s.NotEmpty(result.Errors)

	count, err := s.remote.Pantry().Count(ctx, testUser)
	s.Require().NoError(err)
	s.Equal(1, count, "the colliding batch inserted nothing")
}

func (s *EngineSuite) TestMigrateTotalRemoteOutage() {
	ctx := context.Background()
	s.seedProfile()
	s.seedPantry(2)
	s.remote.SetFailing(errors.New("connection refused"))

	result := s.engine.Migrate(ctx, testUser)

	s.False(result.Success)
	s.Equal(domain.MigrationFailed, s.engine.State(testUser))
	s.NotEmpty(result.Errors)

	// Failed may transition back through a retry once the remote heals.
	s.remote.SetFailing(nil)
	retried := s.engine.Migrate(ctx, testUser)
	s.True(retried.Success)
	s.Equal(domain.MigrationComplete, s.engine.State(testUser))
}

func (s *EngineSuite) TestMigrateStoresEncryptedBackup() {
	ctx := context.Background()
	s.seedProfile()
	s.seedPantry(2)

	result := s.engine.Migrate(ctx, testUser)
	s.Require().True(result.Success)
	s.Equal(1, s.remote.BackupCount())
}

func (s *EngineSuite) TestMigrateLeavesLocalStoreIntact() {
	ctx := context.Background()
	s.seedProfile()
	s.seedPantry(2)

	before, err := s.local.Keys()
	s.Require().NoError(err)

	result := s.engine.Migrate(ctx, testUser)
	s.Require().True(result.Success)

	after, err := s.local.Keys()
	s.Require().NoError(err)
	s.ElementsMatch(before, after, "local data stays behind as a soft backup")
}

// =============================================================================
// Status / SyncFromRemote
// =============================================================================

func (s *EngineSuite) TestStatus() {
	ctx := context.Background()

	s.Run("all zero for an unmigrated user", func() {
		status := s.engine.Status(ctx, testUser)
		s.False(status.HasProfile)
		s.Zero(status.PantryItemsCount)
	})

	s.Run("counts after migration", func() {
		s.seedProfile()
		s.seedPantry(2)
		s.Require().True(s.engine.Migrate(ctx, testUser).Success)

		status := s.engine.Status(ctx, testUser)
		s.True(status.HasProfile)
		s.Equal(2, status.PantryItemsCount)
		s.Equal(0, status.RecipesCount)
	})

	s.Run("defaults to zero when the remote is unreachable", func() {
		s.remote.SetFailing(errors.New("connection refused"))
		status := s.engine.Status(ctx, testUser)
		s.False(status.HasProfile)
		s.Zero(status.PantryItemsCount)
		s.remote.SetFailing(nil)
	})
}

func (s *EngineSuite) TestSyncFromRemote() {
	ctx := context.Background()
	s.Require().NoError(s.remote.Profiles().Insert(ctx, domain.Profile{
		UserID:     testUser,
		SpiceLevel: "mild",
	}))
	s.Require().NoError(s.remote.Pantry().InsertBatch(ctx, []domain.PantryItem{
		{ID: "p1", UserID: testUser, Name: "rice"},
	}))
	// A local record the sync knows nothing about must survive.
	s.Require().NoError(s.local.Write(localstore.KeyUsageStats, []byte(`{"recipesGenerated":7}`)))

	s.Require().NoError(s.engine.SyncFromRemote(ctx, testUser))

	snap := localstore.Snapshot(s.local, nil)
	s.Require().NotNil(snap.Preferences)
	s.Equal("mild", snap.Preferences.SpiceLevel)
	s.Len(snap.Pantry, 1)
	s.Equal(7, snap.UsageStats["recipesGenerated"], "sync is purely additive")
}
