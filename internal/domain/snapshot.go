package domain

// LocalAppState is the shape of the "profile-state" local blob: the
// pre-authentication app state holding the user's setup answers and any
// recipes generated while anonymous.
type LocalAppState struct {
	Name                string   `json:"name,omitempty"`
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	FavoriteCuisines    []string `json:"favoriteCuisines,omitempty"`
	SpiceLevel          string   `json:"spiceLevel,omitempty"`
	ServingSize         int      `json:"servingSize,omitempty"`
	GeneratedRecipes    []Recipe `json:"generatedRecipes,omitempty"`
}

// LocalSnapshot is the complete set of locally-persisted records read once,
// non-destructively, by the migration engine. Malformed local records arrive
// here as zero values, never as errors.
type LocalSnapshot struct {
	AppState    *LocalAppState    `json:"appState,omitempty"`
	Pantry      []PantryItem      `json:"pantry,omitempty"`
	Ratings     map[string]int    `json:"ratings,omitempty"`
	Reviews     map[string]string `json:"reviews,omitempty"`
	Preferences *Preferences      `json:"preferences,omitempty"`
	UsageStats  UsageStats        `json:"usageStats,omitempty"`
}

// IsEmpty reports whether there is anything worth migrating. A user who never
// touched the local store gets no migration prompt.
func (s LocalSnapshot) IsEmpty() bool {
	return s.AppState == nil &&
		len(s.Pantry) == 0 &&
		len(s.Ratings) == 0 &&
		len(s.Reviews) == 0 &&
		s.Preferences == nil &&
		len(s.UsageStats) == 0
}
