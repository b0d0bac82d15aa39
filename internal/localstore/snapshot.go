package localstore

import (
	"encoding/json"
	"errors"
	"log/slog"

	"larder/internal/domain"
	"larder/pkg/platform/sentinel"
)

// Snapshot assembles a LocalSnapshot from the fixed record names. It never
// mutates the store and never fails: absent or malformed records become zero
// values, logged at debug level, per the "no local data" policy for
// data-shape errors.
func Snapshot(store Store, logger *slog.Logger) domain.LocalSnapshot {
	if logger == nil {
		logger = slog.Default()
	}
	var snap domain.LocalSnapshot

	if state, ok := readJSON[domain.LocalAppState](store, KeyProfileState, logger); ok {
		snap.AppState = state
	}
	if pantry, ok := readJSON[[]domain.PantryItem](store, KeyPantryInventory, logger); ok {
		snap.Pantry = *pantry
	}
	if ratings, ok := readJSON[map[string]int](store, KeyRecipeRatings, logger); ok {
		snap.Ratings = *ratings
	}
	if reviews, ok := readJSON[map[string]string](store, KeyRecipeReviews, logger); ok {
		snap.Reviews = *reviews
	}
	if prefs, ok := readJSON[domain.Preferences](store, KeyUserPreferences, logger); ok {
		snap.Preferences = prefs
	}
	if stats, ok := readJSON[domain.UsageStats](store, KeyUsageStats, logger); ok {
		snap.UsageStats = *stats
	}
	return snap
}

func readJSON[T any](store Store, name string, logger *slog.Logger) (*T, bool) {
	data, err := store.Read(name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		logger.Debug("local record unreadable, treating as empty", "name", name, "error", err)
		return nil, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		logger.Debug("local record malformed, treating as empty", "name", name, "error", err)
		return nil, false
	}
	return &value, true
}

// WriteJSON marshals and stores one named record.
func WriteJSON(store Store, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Write(name, data)
}
