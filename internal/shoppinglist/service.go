// Package shoppinglist is the dual-mode repository for shopping lists: the
// remote store when authenticated and reachable, the local store otherwise.
// Degraded mode is silent except for a debug log; no remote error escapes to
// the caller while a local fallback exists.
package shoppinglist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"larder/internal/audit"
	"larder/internal/category"
	"larder/internal/domain"
	"larder/internal/retry"
	"larder/pkg/platform/sentinel"
)

var (
	tracer = otel.Tracer("larder/shoppinglist")

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_repository_fallback_total",
		Help: "Operations served by the local store after remote retries were exhausted.",
	}, []string{"op"})
)

// listStore is the operation set both backends implement. The remote
// Postgres store and the local blob-backed store are interchangeable here;
// fallback is swapping one for the other.
type listStore interface {
	List(ctx context.Context, userID string) ([]domain.ShoppingList, error)
	Get(ctx context.Context, userID, listID string) (domain.ShoppingList, error)
	Upsert(ctx context.Context, list domain.ShoppingList) error
	Delete(ctx context.Context, userID, listID string) error
}

// Sessions is the fast authentication probe run before every operation.
type Sessions interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Service routes every public operation: authenticated callers get the
// remote path wrapped in the retry policy; unauthenticated callers go
// straight to the local store without touching the network.
type Service struct {
	remote   listStore
	local    listStore
	sessions Sessions
	retry    retry.Policy
	logger   *slog.Logger
	auditor  audit.Publisher
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the repository. remote may be nil for local-only mode.
func New(remote listStore, local listStore, sessions Sessions, policy retry.Policy, opts ...Option) (*Service, error) {
	if local == nil {
		return nil, errors.New("local store is required")
	}
	if sessions == nil {
		return nil, errors.New("sessions probe is required")
	}
	s := &Service{
		remote:   remote,
		local:    local,
		sessions: sessions,
		retry:    policy,
		logger:   slog.Default(),
		auditor:  audit.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// route picks the backend for this call. Returns the store, the user id for
// remote scoping (empty on the local path), and whether the remote path is in
// play at all.
func (s *Service) route(ctx context.Context) (listStore, string, bool) {
	userID, err := s.sessions.CurrentUserID(ctx)
	if err != nil || s.remote == nil {
		return s.local, "", false
	}
	return s.remote, userID, true
}

// fallback logs and records a remote failure, then hands back the local
// store. Only exhausted retries reach here.
func (s *Service) fallback(ctx context.Context, op, userID string, err error) listStore {
	fallbackTotal.WithLabelValues(op).Inc()
	s.logger.Debug("remote path unavailable, falling back to local store",
		"op", op, "user_id", userID, "error", err)
	s.auditor.Publish(ctx, audit.Event{
		Kind: audit.KindFallbackActivated, UserID: userID, OccurredAt: s.now(),
		Detail: map[string]string{"op": op},
	})
	return s.local
}

// Lists returns every list the user owns, in creation order.
func (s *Service) Lists(ctx context.Context) ([]domain.ShoppingList, error) {
	ctx, span := tracer.Start(ctx, "shoppinglist.Lists")
	defer span.End()

	store, userID, remote := s.route(ctx)
	if !remote {
		return store.List(ctx, userID)
	}
	lists, err := retry.DoValue(ctx, s.retry, "lists.list", func(ctx context.Context) ([]domain.ShoppingList, error) {
		return store.List(ctx, userID)
	})
	if err != nil {
		return s.fallback(ctx, "lists.list", userID, err).List(ctx, "")
	}
	return lists, nil
}

// ActiveList returns the user's active list per SelectActiveList, or
// sentinel.ErrNotFound when the user has none.
func (s *Service) ActiveList(ctx context.Context) (domain.ShoppingList, error) {
	lists, err := s.Lists(ctx)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	if active, ok := SelectActiveList(lists); ok {
		return active, nil
	}
	return domain.ShoppingList{}, sentinel.ErrNotFound
}

// EnsureDefaultList returns the active list, creating the default-named one
// only when the user has no lists at all. Idempotent: an existing empty
// default list is reused, never duplicated.
func (s *Service) EnsureDefaultList(ctx context.Context) (domain.ShoppingList, error) {
	active, err := s.ActiveList(ctx)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return domain.ShoppingList{}, err
	}
	return s.CreateList(ctx, domain.DefaultListName)
}

// CreateList creates a list. The first list a user creates becomes active;
// later ones default to inactive.
func (s *Service) CreateList(ctx context.Context, name string) (domain.ShoppingList, error) {
	ctx, span := tracer.Start(ctx, "shoppinglist.CreateList")
	defer span.End()
	span.SetAttributes(attribute.String("list.name", name))

	store, userID, remote := s.route(ctx)
	list, err := s.createOn(ctx, store, userID, name)
	if err != nil && remote {
		return s.createOn(ctx, s.fallback(ctx, "lists.create", userID, err), "", name)
	}
	return list, err
}

func (s *Service) createOn(ctx context.Context, store listStore, userID, name string) (domain.ShoppingList, error) {
	existing, err := s.storeList(ctx, store, userID)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	now := s.now()
	list := domain.ShoppingList{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		IsActive:  len(existing) == 0,
		Items:     []domain.ShoppingListItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.upsertOn(ctx, store, list); err != nil {
		return domain.ShoppingList{}, err
	}
	return list, nil
}

// AddItem merges an item into a list by normalized name: quantities add,
// priority/price/notes take the incoming values. New names append with a
// fresh id and purchased=false. The list is re-read, mutated, recomputed,
// and upserted whole.
func (s *Service) AddItem(ctx context.Context, listID string, item domain.ShoppingListItem) (domain.ShoppingList, error) {
	ctx, span := tracer.Start(ctx, "shoppinglist.AddItem")
	defer span.End()
	span.SetAttributes(attribute.String("list.id", listID))

	return s.mutate(ctx, "lists.add_item", listID, func(list *domain.ShoppingList) error {
		if idx := list.FindItem(item.Name); idx >= 0 {
			existing := &list.Items[idx]
			existing.Quantity += item.Quantity
			existing.Priority = item.Priority
			existing.EstimatedPrice = item.EstimatedPrice
			existing.Notes = item.Notes
			return nil
		}
		item.ID = uuid.NewString()
		item.Purchased = false
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		if item.Category == "" {
			item.Category = category.Categorize(item.Name)
		}
		list.Items = append(list.Items, item)
		return nil
	})
}

// UpdateItem overwrites the named fields of an existing item.
func (s *Service) UpdateItem(ctx context.Context, listID string, item domain.ShoppingListItem) (domain.ShoppingList, error) {
	return s.mutate(ctx, "lists.update_item", listID, func(list *domain.ShoppingList) error {
		for i := range list.Items {
			if list.Items[i].ID == item.ID {
				item.Category = list.Items[i].Category
				list.Items[i] = item
				return nil
			}
		}
		return sentinel.ErrNotFound
	})
}

// RemoveItem deletes an item from a list.
func (s *Service) RemoveItem(ctx context.Context, listID, itemID string) (domain.ShoppingList, error) {
	return s.mutate(ctx, "lists.remove_item", listID, func(list *domain.ShoppingList) error {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items = append(list.Items[:i], list.Items[i+1:]...)
				return nil
			}
		}
		return sentinel.ErrNotFound
	})
}

// TogglePurchased flips an item's purchased flag.
func (s *Service) TogglePurchased(ctx context.Context, listID, itemID string) (domain.ShoppingList, error) {
	return s.mutate(ctx, "lists.toggle_purchased", listID, func(list *domain.ShoppingList) error {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items[i].Purchased = !list.Items[i].Purchased
				return nil
			}
		}
		return sentinel.ErrNotFound
	})
}

// DeleteList removes a list entirely.
func (s *Service) DeleteList(ctx context.Context, listID string) error {
	store, userID, remote := s.route(ctx)
	if !remote {
		return store.Delete(ctx, userID, listID)
	}
	err := s.retry.Do(ctx, "lists.delete", func(ctx context.Context) error {
		return store.Delete(ctx, userID, listID)
	})
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return s.fallback(ctx, "lists.delete", userID, err).Delete(ctx, "", listID)
	}
	return err
}

// mutate runs apply against a freshly re-read copy of the target list, then
// recomputes derived fields and upserts the list whole. Concurrent writers
// to the same list race last-write-wins on the upsert; distinct lists never
// interfere because each call re-reads its own target.
func (s *Service) mutate(ctx context.Context, op, listID string, apply func(*domain.ShoppingList) error) (domain.ShoppingList, error) {
	store, userID, remote := s.route(ctx)
	list, err := s.mutateOn(ctx, store, userID, listID, apply)
	if err != nil && remote && !isUserError(err) {
		return s.mutateOn(ctx, s.fallback(ctx, op, userID, err), "", listID, apply)
	}
	return list, err
}

func (s *Service) mutateOn(ctx context.Context, store listStore, userID, listID string, apply func(*domain.ShoppingList) error) (domain.ShoppingList, error) {
	list, err := s.getList(ctx, store, userID, listID)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	if err := apply(&list); err != nil {
		return domain.ShoppingList{}, err
	}
	list.Recalculate()
	list.UpdatedAt = s.now()
	if err := s.upsertOn(ctx, store, list); err != nil {
		return domain.ShoppingList{}, err
	}
	return list, nil
}

func (s *Service) storeList(ctx context.Context, store listStore, userID string) ([]domain.ShoppingList, error) {
	if store == s.local {
		return store.List(ctx, userID)
	}
	return retry.DoValue(ctx, s.retry, "lists.list", func(ctx context.Context) ([]domain.ShoppingList, error) {
		return store.List(ctx, userID)
	})
}

func (s *Service) getList(ctx context.Context, store listStore, userID, listID string) (domain.ShoppingList, error) {
	if store == s.local {
		return store.Get(ctx, userID, listID)
	}
	return retry.DoValue(ctx, s.retry, "lists.get", func(ctx context.Context) (domain.ShoppingList, error) {
		return store.Get(ctx, userID, listID)
	})
}

func (s *Service) upsertOn(ctx context.Context, store listStore, list domain.ShoppingList) error {
	if store == s.local {
		return store.Upsert(ctx, list)
	}
	return s.retry.Do(ctx, "lists.upsert", func(ctx context.Context) error {
		return store.Upsert(ctx, list)
	})
}

// isUserError distinguishes errors the caller must see (missing list or
// item) from infrastructure failures that trigger fallback.
func isUserError(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrConflict)
}
