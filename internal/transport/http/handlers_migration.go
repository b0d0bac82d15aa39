package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"larder/internal/auth"
	"larder/internal/domain"
)

// MigrationEngine is the slice of the engine the transport needs.
type MigrationEngine interface {
	NeedsMigration(ctx context.Context, userID string) bool
	Migrate(ctx context.Context, userID string) domain.MigrationResult
	Status(ctx context.Context, userID string) domain.MigrationStatus
	State(userID string) domain.MigrationState
	Dismiss(userID string)
	SyncFromRemote(ctx context.Context, userID string) error
}

// Handler carries the services behind the HTTP surface.
type Handler struct {
	engine  MigrationEngine
	lists   ListService
	recipes RecipeService
	logger  *slog.Logger
}

func NewHandler(engine MigrationEngine, lists ListService, recipes RecipeService, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, lists: lists, recipes: recipes, logger: logger}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleMigrationNeeded reports whether the caller should be prompted to
// migrate. Unauthenticated callers never need migration.
func (h *Handler) HandleMigrationNeeded(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"needed": false, "state": domain.MigrationNotNeeded})
		return
	}
	needed := h.engine.NeedsMigration(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]any{"needed": needed, "state": h.engine.State(userID)})
}

// HandleMigrationRun triggers a migration. The engine never fails outright;
// the result object carries the per-category outcome.
func (h *Handler) HandleMigrationRun(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	result := h.engine.Migrate(r.Context(), userID)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Status(r.Context(), userID))
}

func (h *Handler) HandleMigrationDismiss(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	h.engine.Dismiss(userID)
	writeJSON(w, http.StatusOK, map[string]any{"state": h.engine.State(userID)})
}

// HandleMigrationSync pulls remote profile and pantry rows back into the
// local store for offline use.
func (h *Handler) HandleMigrationSync(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.engine.SyncFromRemote(r.Context(), userID); err != nil {
		h.logger.Error("sync from remote failed", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
