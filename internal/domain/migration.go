package domain

import "time"

// MigrationState tracks where a user sits in the local-to-remote transition.
// Failed may return to InProgress on an explicit retry; Complete and a
// user-dismissed Needed are terminal for the session.
type MigrationState string

const (
	MigrationNotNeeded  MigrationState = "not_needed"
	MigrationNeeded     MigrationState = "needed"
	MigrationInProgress MigrationState = "in_progress"
	MigrationComplete   MigrationState = "complete"
	MigrationFailed     MigrationState = "failed"
)

// MigrationResult reports one migration attempt. Immutable once produced.
// Success reflects the best-effort philosophy: true when any category made it
// across, not when all did.
type MigrationResult struct {
	Success     bool     `json:"success"`
	UserProfile bool     `json:"userProfile"`
	Preferences bool     `json:"preferences"`
	PantryItems int      `json:"pantryItems"`
	Recipes     int      `json:"recipes"`
	Ratings     int      `json:"ratings"`
	Errors      []string `json:"errors"`
}

// MigrationStatus is the cheap read-only probe rendered by progress UI.
// Missing counts default to 0 rather than failing the whole call.
type MigrationStatus struct {
	HasProfile       bool `json:"hasProfile"`
	PantryItemsCount int  `json:"pantryItemsCount"`
	RecipesCount     int  `json:"recipesCount"`
	RatingsCount     int  `json:"ratingsCount"`
}

// BackupRecord is the write-once encrypted archive of the pre-migration
// snapshot. Ciphertext is opaque base64; the key never leaves the server.
type BackupRecord struct {
	UserID     string    `json:"userId"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"createdAt"`
}
