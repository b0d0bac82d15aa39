package domain

import (
	"fmt"
	"time"
)

// Recipe is a generated recipe, locally stored before migration and remote
// afterwards. Local IDs are preserved across migration so rating rows keep
// pointing at the right recipe.
type Recipe struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Title       string    `json:"title"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	Nutrition   Nutrition `json:"nutrition"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Nutrition holds per-serving values; zero values mean unknown.
type Nutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// RecipeRating joins a user's rating and review for one recipe. The row ID is
// the composite "<userID>-<recipeID>" so re-inserting the same rating on a
// migration retry hits the unique key instead of duplicating.
type RecipeRating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	RecipeID  string    `json:"recipeId"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingID builds the idempotent composite key for a rating row.
func RatingID(userID, recipeID string) string {
	return fmt.Sprintf("%s-%s", userID, recipeID)
}
