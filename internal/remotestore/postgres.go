package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"larder/internal/domain"
	"larder/pkg/platform/sentinel"
)

// Postgres implements every per-collection store against one database
// handle. Driver errors are mapped to sentinels at this boundary so services
// never see pq types.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Ping is the availability probe: a no-op query cheap enough to run before
// every remote-path decision.
func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// mapErr translates driver errors into sentinel errors.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- profiles ---

type profileStore struct{ *Postgres }

// Profiles returns the profile collection view of the shared handle.
func (s *Postgres) Profiles() ProfileStore { return profileStore{s} }

func (s profileStore) Get(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, dietary, allergies, cuisines, spice_level, serving_size, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, pq.Array(&p.DietaryRestrictions), pq.Array(&p.Allergies),
			pq.Array(&p.FavoriteCuisines), &p.SpiceLevel, &p.ServingSize, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Profile{}, mapErr(err, "get profile")
	}
	return p, nil
}

func (s profileStore) Insert(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, dietary, allergies, cuisines, spice_level, serving_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.UserID, pq.Array(p.DietaryRestrictions), pq.Array(p.Allergies),
		pq.Array(p.FavoriteCuisines), p.SpiceLevel, p.ServingSize, p.CreatedAt, p.UpdatedAt)
	return mapErr(err, "insert profile")
}

// --- pantry ---

type pantryStore struct{ *Postgres }

func (s *Postgres) Pantry() PantryStore { return pantryStore{s} }

func (s pantryStore) List(ctx context.Context, userID string) ([]domain.PantryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, quantity, unit, location, category, expires_at, created_at
		FROM pantry_items WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, mapErr(err, "list pantry")
	}
	defer rows.Close()

	var items []domain.PantryItem
	for rows.Next() {
		var item domain.PantryItem
		var expires sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity,
			&item.Unit, &item.Location, &item.Category, &expires, &item.CreatedAt); err != nil {
			return nil, mapErr(err, "scan pantry item")
		}
		if expires.Valid {
			item.ExpiresAt = &expires.Time
		}
		items = append(items, item)
	}
	return items, mapErr(rows.Err(), "list pantry")
}

func (s pantryStore) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pantry_items WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, mapErr(err, "count pantry")
	}
	return count, nil
}

func (s pantryStore) InsertBatch(ctx context.Context, items []domain.PantryItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err, "insert pantry batch")
	}
	defer tx.Rollback()

	for _, item := range items {
		var expires sql.NullTime
		if item.ExpiresAt != nil {
			expires = sql.NullTime{Time: *item.ExpiresAt, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pantry_items (id, user_id, name, quantity, unit, location, category, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.UserID, item.Name, item.Quantity, item.Unit,
			item.Location, item.Category, expires, item.CreatedAt)
		if err != nil {
			return mapErr(err, "insert pantry batch")
		}
	}
	return mapErr(tx.Commit(), "insert pantry batch")
}

// --- recipes ---

type recipeStore struct{ *Postgres }

func (s *Postgres) Recipes() RecipeStore { return recipeStore{s} }

func (s recipeStore) List(ctx context.Context, userID string) ([]domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, ingredients, steps, nutrition, tags, created_at
		FROM recipes WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, mapErr(err, "list recipes")
	}
	defer rows.Close()

	var recipes []domain.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, mapErr(err, "scan recipe")
		}
		recipes = append(recipes, recipe)
	}
	return recipes, mapErr(rows.Err(), "list recipes")
}

func scanRecipe(rows *sql.Rows) (domain.Recipe, error) {
	var r domain.Recipe
	var ingredients, steps, nutrition []byte
	if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &ingredients, &steps,
		&nutrition, pq.Array(&r.Tags), &r.CreatedAt); err != nil {
		return domain.Recipe{}, err
	}
	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return domain.Recipe{}, err
	}
	if err := json.Unmarshal(steps, &r.Steps); err != nil {
		return domain.Recipe{}, err
	}
	if err := json.Unmarshal(nutrition, &r.Nutrition); err != nil {
		return domain.Recipe{}, err
	}
	return r, nil
}

func (s recipeStore) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, mapErr(err, "count recipes")
	}
	return count, nil
}

func (s recipeStore) InsertBatch(ctx context.Context, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err, "insert recipe batch")
	}
	defer tx.Rollback()

	for _, recipe := range recipes {
		if err := execInsertRecipe(ctx, tx, recipe); err != nil {
			return mapErr(err, "insert recipe batch")
		}
	}
	return mapErr(tx.Commit(), "insert recipe batch")
}

func (s recipeStore) Save(ctx context.Context, recipe domain.Recipe) error {
	return mapErr(execInsertRecipe(ctx, s.db, recipe), "save recipe")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execInsertRecipe(ctx context.Context, db execer, r domain.Recipe) error {
	ingredients, err := json.Marshal(r.Ingredients)
	if err != nil {
		return err
	}
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return err
	}
	nutrition, err := json.Marshal(r.Nutrition)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO recipes (id, user_id, title, ingredients, steps, nutrition, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, id) DO UPDATE SET
			title = EXCLUDED.title, ingredients = EXCLUDED.ingredients,
			steps = EXCLUDED.steps, nutrition = EXCLUDED.nutrition, tags = EXCLUDED.tags`,
		r.ID, r.UserID, r.Title, ingredients, steps, nutrition, pq.Array(r.Tags), r.CreatedAt)
	return err
}

func (s recipeStore) Delete(ctx context.Context, userID, recipeID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM recipes WHERE user_id = $1 AND id = $2`, userID, recipeID)
	return mapErr(err, "delete recipe")
}

// --- ratings ---

type ratingStore struct{ *Postgres }

func (s *Postgres) Ratings() RatingStore { return ratingStore{s} }

func (s ratingStore) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipe_ratings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, mapErr(err, "count ratings")
	}
	return count, nil
}

func (s ratingStore) Insert(ctx context.Context, rating domain.RecipeRating) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipe_ratings (id, user_id, recipe_id, rating, review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rating.ID, rating.UserID, rating.RecipeID, rating.Rating, rating.Review, rating.CreatedAt)
	return mapErr(err, "insert rating")
}

// --- shopping lists ---

type shoppingListStore struct{ *Postgres }

func (s *Postgres) ShoppingLists() ShoppingListStore { return shoppingListStore{s} }

func (s shoppingListStore) List(ctx context.Context, userID string) ([]domain.ShoppingList, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, is_active, items, total_cost, created_at, updated_at
		FROM shopping_lists WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, mapErr(err, "list shopping lists")
	}
	defer rows.Close()

	var lists []domain.ShoppingList
	for rows.Next() {
		list, err := scanShoppingList(rows.Scan)
		if err != nil {
			return nil, mapErr(err, "scan shopping list")
		}
		lists = append(lists, list)
	}
	return lists, mapErr(rows.Err(), "list shopping lists")
}

func (s shoppingListStore) Get(ctx context.Context, userID, listID string) (domain.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, is_active, items, total_cost, created_at, updated_at
		FROM shopping_lists WHERE user_id = $1 AND id = $2`, userID, listID)
	list, err := scanShoppingList(row.Scan)
	if err != nil {
		return domain.ShoppingList{}, mapErr(err, "get shopping list")
	}
	return list, nil
}

func scanShoppingList(scan func(...any) error) (domain.ShoppingList, error) {
	var l domain.ShoppingList
	var items []byte
	if err := scan(&l.ID, &l.UserID, &l.Name, &l.IsActive, &items,
		&l.TotalEstimatedCost, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return domain.ShoppingList{}, err
	}
	if err := json.Unmarshal(items, &l.Items); err != nil {
		return domain.ShoppingList{}, err
	}
	l.Recalculate()
	return l, nil
}

func (s shoppingListStore) Upsert(ctx context.Context, list domain.ShoppingList) error {
	items, err := json.Marshal(list.Items)
	if err != nil {
		return fmt.Errorf("upsert shopping list: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shopping_lists (id, user_id, name, is_active, items, total_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, is_active = EXCLUDED.is_active,
			items = EXCLUDED.items, total_cost = EXCLUDED.total_cost,
			updated_at = EXCLUDED.updated_at`,
		list.ID, list.UserID, list.Name, list.IsActive, items,
		list.TotalEstimatedCost, list.CreatedAt, list.UpdatedAt)
	return mapErr(err, "upsert shopping list")
}

func (s shoppingListStore) Delete(ctx context.Context, userID, listID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_lists WHERE user_id = $1 AND id = $2`, userID, listID)
	return mapErr(err, "delete shopping list")
}

// --- backups ---

type backupStore struct{ *Postgres }

func (s *Postgres) Backups() BackupStore { return backupStore{s} }

func (s backupStore) Insert(ctx context.Context, backup domain.BackupRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_backups (user_id, ciphertext, created_at)
		VALUES ($1, $2, $3)`,
		backup.UserID, backup.Ciphertext, backup.CreatedAt)
	return mapErr(err, "insert backup")
}
