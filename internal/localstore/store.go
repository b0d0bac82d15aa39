package localstore

// Fixed record names. These mirror the keys the client app writes before a
// user ever authenticates; the migration engine reads them and nothing else.
const (
	KeyProfileState    = "profile-state"
	KeyPantryInventory = "pantry-inventory"
	KeyRecipeRatings   = "recipe-ratings"
	KeyRecipeReviews   = "recipe-reviews"
	KeyUserPreferences = "user-preferences"
	KeyUsageStats      = "usage-stats"
	KeyShoppingLists   = "shopping-lists"
)

// Store is the local-only persistence boundary: named JSON blobs, no network,
// synchronous. Read returns sentinel.ErrNotFound for absent names.
//
// Interface-driven so the dual-mode repository and migration engine can run
// against the file-backed store in production and the in-memory store in
// tests without rewiring.
type Store interface {
	Read(name string) ([]byte, error)
	Write(name string, value []byte) error
	Remove(name string) error
	Keys() ([]string, error)
}
