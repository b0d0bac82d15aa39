// Package migration orchestrates the one-time transfer of a user's local
// records into the remote store. The engine's outward contract is "never
// throws": every sub-operation failure is caught, logged, and folded into a
// MigrationResult describing what happened.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"larder/internal/audit"
	"larder/internal/category"
	"larder/internal/domain"
	"larder/internal/localstore"
	"larder/internal/remotestore"
	"larder/internal/retry"
	"larder/pkg/platform/sentinel"
)

var (
	tracer = otel.Tracer("larder/migration")

	migrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_migrations_total",
		Help: "Migration attempts by outcome.",
	}, []string{"outcome"})
)

// Engine runs the local-to-remote migration. One instance per process,
// injected into every consumer.
type Engine struct {
	local     localstore.Store
	profiles  remotestore.ProfileStore
	pantry    remotestore.PantryStore
	recipes   remotestore.RecipeStore
	ratings   remotestore.RatingStore
	backups   remotestore.BackupStore
	retry     retry.Policy
	backupKey string

	logger  *slog.Logger
	auditor audit.Publisher
	now     func() time.Time

	mu     sync.Mutex
	states map[string]domain.MigrationState
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithAuditor(publisher audit.Publisher) Option {
	return func(e *Engine) { e.auditor = publisher }
}

func WithNowFunc(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Remote bundles the per-collection stores the engine writes to.
type Remote struct {
	Profiles remotestore.ProfileStore
	Pantry   remotestore.PantryStore
	Recipes  remotestore.RecipeStore
	Ratings  remotestore.RatingStore
	Backups  remotestore.BackupStore
}

func New(local localstore.Store, remote Remote, policy retry.Policy, backupKey string, opts ...Option) (*Engine, error) {
	if local == nil {
		return nil, errors.New("local store is required")
	}
	if remote.Profiles == nil || remote.Pantry == nil || remote.Recipes == nil || remote.Ratings == nil {
		return nil, errors.New("remote stores are required")
	}
	e := &Engine{
		local:     local,
		profiles:  remote.Profiles,
		pantry:    remote.Pantry,
		recipes:   remote.Recipes,
		ratings:   remote.Ratings,
		backups:   remote.Backups,
		retry:     policy,
		backupKey: backupKey,
		logger:    slog.Default(),
		auditor:   audit.Nop{},
		now:       time.Now,
		states:    make(map[string]domain.MigrationState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State reports the session-local migration state for a user.
func (e *Engine) State(userID string) domain.MigrationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state, ok := e.states[userID]; ok {
		return state
	}
	return domain.MigrationNotNeeded
}

func (e *Engine) setState(userID string, state domain.MigrationState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[userID] = state
}

// Dismiss marks a Needed migration as declined for this session. Terminal:
// the user will not be prompted again until the process restarts.
func (e *Engine) Dismiss(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[userID] == domain.MigrationNeeded {
		e.states[userID] = domain.MigrationNotNeeded
	}
}

// NeedsMigration reports whether userID has local data and no remote profile
// yet. Fails closed: a remote probe error returns false so transient outages
// do not repeatedly prompt the user.
func (e *Engine) NeedsMigration(ctx context.Context, userID string) bool {
	_, err := retry.DoValue(ctx, e.retry, "profile.get", func(ctx context.Context) (domain.Profile, error) {
		return e.profiles.Get(ctx, userID)
	})
	switch {
	case err == nil:
		// Profile exists: already migrated.
		e.setState(userID, domain.MigrationNotNeeded)
		return false
	case !errors.Is(err, sentinel.ErrNotFound):
		e.logger.Warn("migration probe failed, assuming not needed", "user_id", userID, "error", err)
		return false
	}

	if localstore.Snapshot(e.local, e.logger).IsEmpty() {
		e.setState(userID, domain.MigrationNotNeeded)
		return false
	}
	e.setState(userID, domain.MigrationNeeded)
	return true
}

// Migrate transfers the local snapshot to the remote store. Four independent
// sub-migrations; a failure in one never aborts the others. Success means at
// least one category made it across. The local store is deliberately left
// untouched afterwards: local data remains a soft backup.
func (e *Engine) Migrate(ctx context.Context, userID string) domain.MigrationResult {
	ctx, span := tracer.Start(ctx, "migration.Migrate")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	e.setState(userID, domain.MigrationInProgress)
	e.auditor.Publish(ctx, audit.Event{
		Kind: audit.KindMigrationStarted, UserID: userID, OccurredAt: e.now(),
	})

	snapshot := localstore.Snapshot(e.local, e.logger)
	if snapshot.IsEmpty() {
		e.setState(userID, domain.MigrationNotNeeded)
		return domain.MigrationResult{
			Success: false,
			Errors:  []string{"no local data to migrate"},
		}
	}

	var result domain.MigrationResult
	result.UserProfile, result.Preferences = e.migrateProfile(ctx, userID, snapshot, &result)
	result.PantryItems = e.migratePantry(ctx, userID, snapshot, &result)
	result.Recipes = e.migrateRecipes(ctx, userID, snapshot, &result)
	result.Ratings = e.migrateRatings(ctx, userID, snapshot, &result)

	result.Success = result.UserProfile || result.PantryItems > 0 ||
		result.Recipes > 0 || result.Ratings > 0

	if result.Success {
		e.storeBackup(ctx, userID, snapshot)
		e.setState(userID, domain.MigrationComplete)
		migrationsTotal.WithLabelValues("success").Inc()
		e.auditor.Publish(ctx, audit.Event{
			Kind: audit.KindMigrationCompleted, UserID: userID, OccurredAt: e.now(),
			Detail: map[string]string{
				"pantry_items": fmt.Sprint(result.PantryItems),
				"recipes":      fmt.Sprint(result.Recipes),
				"ratings":      fmt.Sprint(result.Ratings),
			},
		})
	} else {
		e.setState(userID, domain.MigrationFailed)
		migrationsTotal.WithLabelValues("failure").Inc()
		e.auditor.Publish(ctx, audit.Event{
			Kind: audit.KindMigrationFailed, UserID: userID, OccurredAt: e.now(),
		})
	}

	e.logger.Info("migration finished",
		"user_id", userID,
		"success", result.Success,
		"profile", result.UserProfile,
		"pantry_items", result.PantryItems,
		"recipes", result.Recipes,
		"ratings", result.Ratings,
		"errors", len(result.Errors),
	)
	return result
}

// migrateProfile builds the remote profile row from the local app-state and
// preferences blobs. Fails only when neither exists.
func (e *Engine) migrateProfile(ctx context.Context, userID string, snap domain.LocalSnapshot, result *domain.MigrationResult) (profileOk, prefsApplied bool) {
	if snap.AppState == nil && snap.Preferences == nil {
		result.Errors = append(result.Errors, "profile: no local user or preferences data")
		return false, false
	}

	now := e.now()
	profile := domain.Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if state := snap.AppState; state != nil {
		profile.DietaryRestrictions = state.DietaryRestrictions
		profile.Allergies = state.Allergies
		profile.FavoriteCuisines = state.FavoriteCuisines
		profile.SpiceLevel = state.SpiceLevel
		profile.ServingSize = state.ServingSize
	}
	// Preferences are the more recent record; they win where set.
	if prefs := snap.Preferences; prefs != nil {
		prefsApplied = true
		if len(prefs.DietaryRestrictions) > 0 {
			profile.DietaryRestrictions = prefs.DietaryRestrictions
		}
		if len(prefs.Allergies) > 0 {
			profile.Allergies = prefs.Allergies
		}
		if len(prefs.FavoriteCuisines) > 0 {
			profile.FavoriteCuisines = prefs.FavoriteCuisines
		}
		if prefs.SpiceLevel != "" {
			profile.SpiceLevel = prefs.SpiceLevel
		}
		if prefs.ServingSize > 0 {
			profile.ServingSize = prefs.ServingSize
		}
	}
	profile.ApplyDefaults()

	err := e.retry.Do(ctx, "profile.insert", func(ctx context.Context) error {
		return e.profiles.Insert(ctx, profile)
	})
	if errors.Is(err, sentinel.ErrConflict) {
		// Already migrated; idempotent outcome.
		return true, prefsApplied
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("profile: %v", err))
		return false, false
	}
	return true, prefsApplied
}

// migratePantry bulk-inserts local pantry items. All-or-nothing within the
// category: any insert error yields a count of 0, not a partial count.
func (e *Engine) migratePantry(ctx context.Context, userID string, snap domain.LocalSnapshot, result *domain.MigrationResult) int {
	if len(snap.Pantry) == 0 {
		return 0
	}
	items := make([]domain.PantryItem, 0, len(snap.Pantry))
	for i, local := range snap.Pantry {
		item := local
		if item.ID == "" {
			item.ID = mintID(userID, "pantry", i, item.Name)
		}
		item.UserID = userID
		if item.Category == "" {
			item.Category = category.Categorize(item.Name)
		}
		item.ApplyDefaults()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = e.now()
		}
		items = append(items, item)
	}
	err := e.retry.Do(ctx, "pantry.insert_batch", func(ctx context.Context) error {
		return e.pantry.InsertBatch(ctx, items)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("pantry: %v", err))
		return 0
	}
	return len(items)
}

// migrateRecipes maps locally generated recipes to remote rows, preserving
// local IDs so rating rows keep resolving.
func (e *Engine) migrateRecipes(ctx context.Context, userID string, snap domain.LocalSnapshot, result *domain.MigrationResult) int {
	if snap.AppState == nil || len(snap.AppState.GeneratedRecipes) == 0 {
		return 0
	}
	recipes := make([]domain.Recipe, 0, len(snap.AppState.GeneratedRecipes))
	for i, local := range snap.AppState.GeneratedRecipes {
		recipe := local
		if recipe.ID == "" {
			recipe.ID = mintID(userID, "recipe", i, recipe.Title)
		}
		recipe.UserID = userID
		if recipe.Tags == nil {
			recipe.Tags = []string{}
		}
		if recipe.CreatedAt.IsZero() {
			recipe.CreatedAt = e.now()
		}
		recipes = append(recipes, recipe)
	}
	err := e.retry.Do(ctx, "recipes.insert_batch", func(ctx context.Context) error {
		return e.recipes.InsertBatch(ctx, recipes)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("recipes: %v", err))
		return 0
	}
	return len(recipes)
}

// migrateRatings reshapes the (ratingsByRecipeID, reviewsByRecipeID) pair
// into one row per rated recipe under the composite "<userID>-<recipeID>"
// key. Rows are inserted individually; a duplicate is an idempotent no-op
// and is not counted.
func (e *Engine) migrateRatings(ctx context.Context, userID string, snap domain.LocalSnapshot, result *domain.MigrationResult) int {
	if len(snap.Ratings) == 0 && len(snap.Reviews) == 0 {
		return 0
	}
	recipeIDs := make(map[string]struct{}, len(snap.Ratings)+len(snap.Reviews))
	for recipeID := range snap.Ratings {
		recipeIDs[recipeID] = struct{}{}
	}
	for recipeID := range snap.Reviews {
		recipeIDs[recipeID] = struct{}{}
	}

	inserted := 0
	for recipeID := range recipeIDs {
		rating := domain.RecipeRating{
			ID:        domain.RatingID(userID, recipeID),
			UserID:    userID,
			RecipeID:  recipeID,
			Rating:    snap.Ratings[recipeID],
			Review:    snap.Reviews[recipeID],
			CreatedAt: e.now(),
		}
		err := e.retry.Do(ctx, "ratings.insert", func(ctx context.Context) error {
			return e.ratings.Insert(ctx, rating)
		})
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("ratings: %s: %v", recipeID, err))
			continue
		}
		inserted++
	}
	return inserted
}

// mintID derives a stable UUID for a local record that was stored without
// one. Deterministic so a re-run of the migration reproduces the same IDs
// and collides with the earlier rows instead of duplicating them.
func mintID(userID, kind string, ordinal int, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/%s/%d/%s", userID, kind, ordinal, name)).String()
}

// storeBackup encrypts and persists the pre-migration snapshot. Its own
// failure is logged but does not affect the migration result.
func (e *Engine) storeBackup(ctx context.Context, userID string, snap domain.LocalSnapshot) {
	if e.backups == nil {
		return
	}
	ciphertext, err := EncryptSnapshot(e.backupKey, snap)
	if err != nil {
		e.logger.Error("failed to encrypt migration backup", "user_id", userID, "error", err)
		return
	}
	backup := domain.BackupRecord{UserID: userID, Ciphertext: ciphertext, CreatedAt: e.now()}
	err = e.retry.Do(ctx, "backup.insert", func(ctx context.Context) error {
		return e.backups.Insert(ctx, backup)
	})
	if err != nil {
		e.logger.Error("failed to store migration backup", "user_id", userID, "error", err)
		return
	}
	e.auditor.Publish(ctx, audit.Event{
		Kind: audit.KindBackupStored, UserID: userID, OccurredAt: e.now(),
	})
}

// Status is the cheap read-only probe behind progress UI. Each count is
// fetched independently; an unreachable table defaults its count to 0 rather
// than failing the call.
func (e *Engine) Status(ctx context.Context, userID string) domain.MigrationStatus {
	var status domain.MigrationStatus

	if _, err := e.profiles.Get(ctx, userID); err == nil {
		status.HasProfile = true
	}
	if count, err := e.pantry.Count(ctx, userID); err == nil {
		status.PantryItemsCount = count
	}
	if count, err := e.recipes.Count(ctx, userID); err == nil {
		status.RecipesCount = count
	}
	if count, err := e.ratings.Count(ctx, userID); err == nil {
		status.RatingsCount = count
	}
	return status
}

// SyncFromRemote rebuilds local records from remote profile and pantry rows
// for offline use after a cloud session. Purely additive: local keys the
// sync does not know about are never touched.
func (e *Engine) SyncFromRemote(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "migration.SyncFromRemote")
	defer span.End()

	profile, err := retry.DoValue(ctx, e.retry, "profile.get", func(ctx context.Context) (domain.Profile, error) {
		return e.profiles.Get(ctx, userID)
	})
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("sync profile: %w", err)
	}
	if err == nil {
		prefs := domain.Preferences{
			DietaryRestrictions: profile.DietaryRestrictions,
			Allergies:           profile.Allergies,
			FavoriteCuisines:    profile.FavoriteCuisines,
			SpiceLevel:          profile.SpiceLevel,
			ServingSize:         profile.ServingSize,
		}
		if err := localstore.WriteJSON(e.local, localstore.KeyUserPreferences, prefs); err != nil {
			return fmt.Errorf("sync preferences: %w", err)
		}
	}

	pantry, err := retry.DoValue(ctx, e.retry, "pantry.list", func(ctx context.Context) ([]domain.PantryItem, error) {
		return e.pantry.List(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("sync pantry: %w", err)
	}
	if len(pantry) > 0 {
		if err := localstore.WriteJSON(e.local, localstore.KeyPantryInventory, pantry); err != nil {
			return fmt.Errorf("sync pantry: %w", err)
		}
	}
	return nil
}
