package shoppinglist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"larder/internal/domain"
	"larder/internal/localstore"
	"larder/pkg/platform/sentinel"
)

// LocalStore adapts the named-blob local store to the listStore interface:
// the whole collection lives under one record and is rewritten on every
// mutation, matching how the client persisted lists before authentication.
// The user id argument is ignored; the local store is device-scoped.
type LocalStore struct {
	mu    sync.Mutex
	store localstore.Store
}

func NewLocalStore(store localstore.Store) *LocalStore {
	return &LocalStore{store: store}
}

func (s *LocalStore) load() ([]domain.ShoppingList, error) {
	data, err := s.store.Read(localstore.KeyShoppingLists)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lists []domain.ShoppingList
	if err := json.Unmarshal(data, &lists); err != nil {
		// Corrupt local state degrades to empty, never fatal.
		return nil, nil
	}
	return lists, nil
}

func (s *LocalStore) save(lists []domain.ShoppingList) error {
	data, err := json.Marshal(lists)
	if err != nil {
		return err
	}
	return s.store.Write(localstore.KeyShoppingLists, data)
}

func (s *LocalStore) List(_ context.Context, _ string) ([]domain.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *LocalStore) Get(_ context.Context, _ string, listID string) (domain.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, err := s.load()
	if err != nil {
		return domain.ShoppingList{}, err
	}
	for _, list := range lists {
		if list.ID == listID {
			return list, nil
		}
	}
	return domain.ShoppingList{}, fmt.Errorf("get shopping list: %w", sentinel.ErrNotFound)
}

func (s *LocalStore) Upsert(_ context.Context, list domain.ShoppingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, err := s.load()
	if err != nil {
		return err
	}
	for i := range lists {
		if lists[i].ID == list.ID {
			lists[i] = list
			return s.save(lists)
		}
	}
	return s.save(append(lists, list))
}

func (s *LocalStore) Delete(_ context.Context, _ string, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, err := s.load()
	if err != nil {
		return err
	}
	kept := lists[:0]
	for _, list := range lists {
		if list.ID != listID {
			kept = append(kept, list)
		}
	}
	return s.save(kept)
}
