package shoppinglist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"larder/internal/domain"
	"larder/internal/localstore"
	"larder/internal/remotestore"
	"larder/internal/retry"
	"larder/pkg/platform/sentinel"
)

type stubSessions struct{ userID string }

func (s stubSessions) CurrentUserID(context.Context) (string, error) {
	if s.userID == "" {
		return "", fmt.Errorf("no session: %w", sentinel.ErrUnauthenticated)
	}
	return s.userID, nil
}

type ServiceSuite struct {
	suite.Suite
	remote  *remotestore.Memory
	local   *LocalStore
	service *Service // authenticated, remote-first
	offline *Service // unauthenticated, local-only routing
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.remote = remotestore.NewMemory()
	s.local = NewLocalStore(localstore.NewMemory())
	policy := retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond}

	var err error
	s.service, err = New(s.remote.ShoppingLists(), s.local, stubSessions{userID: "user-1"}, policy)
	s.Require().NoError(err)
	s.offline, err = New(s.remote.ShoppingLists(), s.local, stubSessions{}, policy)
	s.Require().NoError(err)
}

// =============================================================================
// Routing
// =============================================================================

func (s *ServiceSuite) TestUnauthenticatedNeverTouchesRemote() {
	ctx := context.Background()
	s.remote.SetFailing(errors.New("connection refused"))

	list, err := s.offline.CreateList(ctx, "Weekend Shop")
	s.Require().NoError(err, "the local path must not depend on the remote at all")

	_, err = s.offline.AddItem(ctx, list.ID, domain.ShoppingListItem{Name: "milk", Quantity: 2})
	s.Require().NoError(err)

	lists, err := s.offline.Lists(ctx)
	s.Require().NoError(err)
	s.Len(lists, 1)
}

func (s *ServiceSuite) TestAuthenticatedUsesRemote() {
	ctx := context.Background()

	list, err := s.service.CreateList(ctx, "Weekend Shop")
	s.Require().NoError(err)
	s.Equal("user-1", list.UserID)

	remote, err := s.remote.ShoppingLists().List(ctx, "user-1")
	s.Require().NoError(err)
	s.Len(remote, 1)

	local, err := s.local.List(ctx, "")
	s.Require().NoError(err)
	s.Empty(local, "an authenticated write must not shadow into the local store")
}

// =============================================================================
// Fallback
// =============================================================================

func (s *ServiceSuite) TestRemoteOutageFallsBackToLocalReads() {
	ctx := context.Background()
	_, err := s.offline.CreateList(ctx, "Saved Offline")
	s.Require().NoError(err)

	s.remote.SetFailing(errors.New("connection refused"))

	lists, err := s.service.Lists(ctx)
	s.Require().NoError(err, "an exhausted remote must degrade silently, not error")
	s.Require().Len(lists, 1)
	s.Equal("Saved Offline", lists[0].Name)
}

func (s *ServiceSuite) TestRemoteOutageFallsBackForWrites() {
	ctx := context.Background()
	s.remote.SetFailing(errors.New("connection refused"))

	list, err := s.service.CreateList(ctx, "During Outage")
	s.Require().NoError(err)

	local, err := s.local.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(local, 1)
	s.Equal(list.ID, local[0].ID)

	s.remote.SetFailing(nil)
	remote, err := s.remote.ShoppingLists().List(ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(remote, "outage writes land locally only; there is no write-back sync")
}

func (s *ServiceSuite) TestMissingListDoesNotTriggerFallback() {
	ctx := context.Background()
	// Plant a same-id list locally: if fallback fired, the mutation would
	// succeed against this copy and mask the user error.
	s.Require().NoError(s.local.Upsert(ctx, domain.ShoppingList{ID: "ghost", Name: "Local Ghost"}))

	_, err := s.service.AddItem(ctx, "ghost", domain.ShoppingListItem{Name: "milk"})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.local.Get(ctx, "", "ghost")
	s.Require().NoError(err)
	s.Empty(got.Items, "a user error must surface, not reroute to the local store")
}

// =============================================================================
// List lifecycle
// =============================================================================

func (s *ServiceSuite) TestFirstListIsActive() {
	ctx := context.Background()

	first, err := s.service.CreateList(ctx, "First")
	s.Require().NoError(err)
	s.True(first.IsActive)

	second, err := s.service.CreateList(ctx, "Second")
	s.Require().NoError(err)
	s.False(second.IsActive)

	active, err := s.service.ActiveList(ctx)
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)
}

func (s *ServiceSuite) TestEnsureDefaultListIsIdempotent() {
	ctx := context.Background()

	first, err := s.service.EnsureDefaultList(ctx)
	s.Require().NoError(err)
	s.Equal(domain.DefaultListName, first.Name)
	s.True(first.IsActive)

	again, err := s.service.EnsureDefaultList(ctx)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID, "an existing empty default list is reused")

	lists, err := s.service.Lists(ctx)
	s.Require().NoError(err)
	s.Len(lists, 1)
}

func (s *ServiceSuite) TestDeleteList() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Doomed")
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteList(ctx, list.ID))

	lists, err := s.service.Lists(ctx)
	s.Require().NoError(err)
	s.Empty(lists)
}

// =============================================================================
// Items
// =============================================================================

func (s *ServiceSuite) TestAddItemMergesByNormalizedName() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Groceries")
	s.Require().NoError(err)

	_, err = s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{
		Name: "Milk", Quantity: 2, EstimatedPrice: 3.50, Notes: "whole",
	})
	s.Require().NoError(err)

	// Same item modulo case and whitespace: quantities add, the rest is
	// last-write-wins.
	got, err := s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{
		Name: "  milk ", Quantity: 1, EstimatedPrice: 4.00, Priority: "high",
	})
	s.Require().NoError(err)

	s.Require().Len(got.Items, 1)
	item := got.Items[0]
	s.Equal("Milk", item.Name, "the original spelling is kept")
	s.Equal(3.0, item.Quantity)
	s.Equal(4.00, item.EstimatedPrice)
	s.Equal("high", item.Priority)
	s.Equal("", item.Notes, "notes are overwritten, not appended")
}

func (s *ServiceSuite) TestAddItemDefaults() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Groceries")
	s.Require().NoError(err)

	got, err := s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{Name: "cheddar cheese"})
	s.Require().NoError(err)

	s.Require().Len(got.Items, 1)
	item := got.Items[0]
	s.NotEmpty(item.ID)
	s.Equal(1.0, item.Quantity)
	s.Equal("dairy & eggs", item.Category)
	s.False(item.Purchased)
}

func (s *ServiceSuite) TestTotalsTrackEveryMutation() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Groceries")
	s.Require().NoError(err)

	_, err = s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{Name: "milk", EstimatedPrice: 3.50})
	s.Require().NoError(err)
	got, err := s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{Name: "bread", EstimatedPrice: 2.25})
	s.Require().NoError(err)
	s.InDelta(5.75, got.TotalEstimatedCost, 1e-9)
	s.Equal(0, got.CompletedItems)

	milkID := got.Items[0].ID
	got, err = s.service.TogglePurchased(ctx, list.ID, milkID)
	s.Require().NoError(err)
	s.Equal(1, got.CompletedItems)
	s.InDelta(5.75, got.TotalEstimatedCost, 1e-9, "purchasing does not change the estimate")

	got, err = s.service.RemoveItem(ctx, list.ID, milkID)
	s.Require().NoError(err)
	s.InDelta(2.25, got.TotalEstimatedCost, 1e-9)
	s.Equal(0, got.CompletedItems)
}

func (s *ServiceSuite) TestUpdateItemKeepsCategory() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Groceries")
	s.Require().NoError(err)

	got, err := s.service.AddItem(ctx, list.ID, domain.ShoppingListItem{Name: "milk", Quantity: 1})
	s.Require().NoError(err)
	item := got.Items[0]

	item.Quantity = 4
	item.Category = ""
	got, err = s.service.UpdateItem(ctx, list.ID, item)
	s.Require().NoError(err)
	s.Equal(4.0, got.Items[0].Quantity)
	s.Equal("dairy & eggs", got.Items[0].Category, "update never loses the stored category")
}

func (s *ServiceSuite) TestItemOperationsOnMissingItem() {
	ctx := context.Background()
	list, err := s.service.CreateList(ctx, "Groceries")
	s.Require().NoError(err)

	_, err = s.service.UpdateItem(ctx, list.ID, domain.ShoppingListItem{ID: "missing"})
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.service.RemoveItem(ctx, list.ID, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.service.TogglePurchased(ctx, list.ID, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
