package domain

import "time"

// Defaults applied when a local record omits optional profile fields.
const (
	DefaultSpiceLevel  = "medium"
	DefaultServingSize = 4
)

// Profile is the remote profile row for a user. Its presence is the durable
// marker that the user's local data has been migrated: no profile row means
// not yet migrated.
type Profile struct {
	UserID              string    `json:"userId"`
	DietaryRestrictions []string  `json:"dietaryRestrictions"`
	Allergies           []string  `json:"allergies"`
	FavoriteCuisines    []string  `json:"favoriteCuisines"`
	SpiceLevel          string    `json:"spiceLevel"`
	ServingSize         int       `json:"servingSize"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ApplyDefaults fills optional fields the way the migration engine expects
// them to be defaulted.
func (p *Profile) ApplyDefaults() {
	if p.SpiceLevel == "" {
		p.SpiceLevel = DefaultSpiceLevel
	}
	if p.ServingSize <= 0 {
		p.ServingSize = DefaultServingSize
	}
}

// Preferences is the pre-authentication local preferences blob.
type Preferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	Allergies           []string `json:"allergies"`
	FavoriteCuisines    []string `json:"favoriteCuisines"`
	SpiceLevel          string   `json:"spiceLevel"`
	ServingSize         int      `json:"servingSize"`
}

// UsageStats is an opaque local counters blob. It is carried through the
// encrypted backup but never migrated into a remote table.
type UsageStats map[string]int
