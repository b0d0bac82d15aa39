package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"larder/internal/auth"
	"larder/internal/domain"
)

// ListService is the dual-mode repository surface the transport exposes.
type ListService interface {
	Lists(ctx context.Context) ([]domain.ShoppingList, error)
	ActiveList(ctx context.Context) (domain.ShoppingList, error)
	CreateList(ctx context.Context, name string) (domain.ShoppingList, error)
	AddItem(ctx context.Context, listID string, item domain.ShoppingListItem) (domain.ShoppingList, error)
	UpdateItem(ctx context.Context, listID string, item domain.ShoppingListItem) (domain.ShoppingList, error)
	RemoveItem(ctx context.Context, listID, itemID string) (domain.ShoppingList, error)
	TogglePurchased(ctx context.Context, listID, itemID string) (domain.ShoppingList, error)
	DeleteList(ctx context.Context, listID string) error
}

// RecipeService is the cached recipe surface.
type RecipeService interface {
	UserRecipes(ctx context.Context, userID string) ([]domain.Recipe, error)
}

func (h *Handler) HandleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.Lists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if lists == nil {
		lists = []domain.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *Handler) HandleActiveList(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.ActiveList(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	body, ok := decode[struct {
		Name string `json:"name"`
	}](w, r)
	if !ok {
		return
	}
	if body.Name == "" {
		body.Name = domain.DefaultListName
	}
	list, err := h.lists.CreateList(r.Context(), body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (h *Handler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.DeleteList(r.Context(), chi.URLParam(r, "listID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	item, ok := decode[domain.ShoppingListItem](w, r)
	if !ok {
		return
	}
	list, err := h.lists.AddItem(r.Context(), chi.URLParam(r, "listID"), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := decode[domain.ShoppingListItem](w, r)
	if !ok {
		return
	}
	item.ID = chi.URLParam(r, "itemID")
	list, err := h.lists.UpdateItem(r.Context(), chi.URLParam(r, "listID"), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.RemoveItem(r.Context(), chi.URLParam(r, "listID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleTogglePurchased(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.TogglePurchased(r.Context(), chi.URLParam(r, "listID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleRecipes(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	recipes, err := h.recipes.UserRecipes(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}
