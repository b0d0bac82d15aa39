package remotestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"larder/internal/domain"
	"larder/pkg/platform/sentinel"
)

// Memory implements every per-collection store in process. Tests use it as
// the remote double; SetFailing simulates a permanent remote outage so
// fallback paths can be exercised deterministically.
type Memory struct {
	mu       sync.RWMutex
	failWith error

	profiles map[string]domain.Profile
	pantry   map[string]map[string]domain.PantryItem  // userID -> itemID
	recipes  map[string]map[string]domain.Recipe      // userID -> recipeID
	ratings  map[string]domain.RecipeRating           // composite rating ID
	lists    map[string]map[string]domain.ShoppingList // userID -> listID
	backups  []domain.BackupRecord
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]domain.Profile),
		pantry:   make(map[string]map[string]domain.PantryItem),
		recipes:  make(map[string]map[string]domain.Recipe),
		ratings:  make(map[string]domain.RecipeRating),
		lists:    make(map[string]map[string]domain.ShoppingList),
	}
}

// SetFailing makes every subsequent operation return err. Pass nil to heal.
func (m *Memory) SetFailing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *Memory) check() error {
	if m.failWith != nil {
		return m.failWith
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

// --- profiles ---

type memProfiles struct{ *Memory }

func (m *Memory) Profiles() ProfileStore { return memProfiles{m} }

func (m memProfiles) Get(_ context.Context, userID string) (domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return domain.Profile{}, err
	}
	profile, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, fmt.Errorf("get profile: %w", sentinel.ErrNotFound)
	}
	return profile, nil
}

func (m memProfiles) Insert(_ context.Context, profile domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, exists := m.profiles[profile.UserID]; exists {
		return fmt.Errorf("insert profile: %w", sentinel.ErrConflict)
	}
	m.profiles[profile.UserID] = profile
	return nil
}

// --- pantry ---

type memPantry struct{ *Memory }

func (m *Memory) Pantry() PantryStore { return memPantry{m} }

func (m memPantry) List(_ context.Context, userID string) ([]domain.PantryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	items := make([]domain.PantryItem, 0, len(m.pantry[userID]))
	for _, item := range m.pantry[userID] {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (m memPantry) Count(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	return len(m.pantry[userID]), nil
}

func (m memPantry) InsertBatch(_ context.Context, items []domain.PantryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	// All-or-nothing: reject the whole batch on any duplicate.
	for _, item := range items {
		if _, exists := m.pantry[item.UserID][item.ID]; exists {
			return fmt.Errorf("insert pantry batch: %w", sentinel.ErrConflict)
		}
	}
	for _, item := range items {
		if m.pantry[item.UserID] == nil {
			m.pantry[item.UserID] = make(map[string]domain.PantryItem)
		}
		m.pantry[item.UserID][item.ID] = item
	}
	return nil
}

// --- recipes ---

type memRecipes struct{ *Memory }

func (m *Memory) Recipes() RecipeStore { return memRecipes{m} }

func (m memRecipes) List(_ context.Context, userID string) ([]domain.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	recipes := make([]domain.Recipe, 0, len(m.recipes[userID]))
	for _, recipe := range m.recipes[userID] {
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].CreatedAt.Before(recipes[j].CreatedAt) })
	return recipes, nil
}

func (m memRecipes) Count(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	return len(m.recipes[userID]), nil
}

func (m memRecipes) InsertBatch(_ context.Context, recipes []domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for _, recipe := range recipes {
		if _, exists := m.recipes[recipe.UserID][recipe.ID]; exists {
			return fmt.Errorf("insert recipe batch: %w", sentinel.ErrConflict)
		}
	}
	for _, recipe := range recipes {
		if m.recipes[recipe.UserID] == nil {
			m.recipes[recipe.UserID] = make(map[string]domain.Recipe)
		}
		m.recipes[recipe.UserID][recipe.ID] = recipe
	}
	return nil
}

func (m memRecipes) Save(_ context.Context, recipe domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if m.recipes[recipe.UserID] == nil {
		m.recipes[recipe.UserID] = make(map[string]domain.Recipe)
	}
	m.recipes[recipe.UserID][recipe.ID] = recipe
	return nil
}

func (m memRecipes) Delete(_ context.Context, userID, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.recipes[userID], recipeID)
	return nil
}

// --- ratings ---

type memRatings struct{ *Memory }

func (m *Memory) Ratings() RatingStore { return memRatings{m} }

func (m memRatings) Count(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	count := 0
	for _, rating := range m.ratings {
		if rating.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m memRatings) Insert(_ context.Context, rating domain.RecipeRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, exists := m.ratings[rating.ID]; exists {
		return fmt.Errorf("insert rating: %w", sentinel.ErrConflict)
	}
	m.ratings[rating.ID] = rating
	return nil
}

// --- shopping lists ---

type memLists struct{ *Memory }

func (m *Memory) ShoppingLists() ShoppingListStore { return memLists{m} }

func (m memLists) List(_ context.Context, userID string) ([]domain.ShoppingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	lists := make([]domain.ShoppingList, 0, len(m.lists[userID]))
	for _, list := range m.lists[userID] {
		lists = append(lists, list)
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt.Before(lists[j].CreatedAt) })
	return lists, nil
}

func (m memLists) Get(_ context.Context, userID, listID string) (domain.ShoppingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return domain.ShoppingList{}, err
	}
	list, ok := m.lists[userID][listID]
	if !ok {
		return domain.ShoppingList{}, fmt.Errorf("get shopping list: %w", sentinel.ErrNotFound)
	}
	return list, nil
}

func (m memLists) Upsert(_ context.Context, list domain.ShoppingList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if m.lists[list.UserID] == nil {
		m.lists[list.UserID] = make(map[string]domain.ShoppingList)
	}
	m.lists[list.UserID][list.ID] = list
	return nil
}

func (m memLists) Delete(_ context.Context, userID, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.lists[userID], listID)
	return nil
}

// --- backups ---

type memBackups struct{ *Memory }

func (m *Memory) Backups() BackupStore { return memBackups{m} }

func (m memBackups) Insert(_ context.Context, backup domain.BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.backups = append(m.backups, backup)
	return nil
}

// BackupCount reports stored backups. Exported for migration tests.
func (m *Memory) BackupCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.backups)
}
