package domain

import (
	"strings"
	"time"
)

// DefaultListName is the name used when a caller needs a list and the user
// has none. Creation under this name is idempotent: an existing default list
// is reused even when empty.
const DefaultListName = "Shopping List"

// ShoppingList is a user-owned ordered collection of items. Items and totals
// are persisted as a whole (list-level upsert), never item by item.
type ShoppingList struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"userId,omitempty"`
	Name               string             `json:"name"`
	IsActive           bool               `json:"isActive"`
	Items              []ShoppingListItem `json:"items"`
	TotalEstimatedCost float64            `json:"totalEstimatedCost"`
	CompletedItems     int                `json:"completedItems"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ShoppingListItem is identified within its list by normalized name, not ID:
// adding an existing name merges quantities instead of duplicating.
type ShoppingListItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit,omitempty"`
	Category       string  `json:"category,omitempty"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	Priority       string  `json:"priority,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	Purchased      bool    `json:"purchased"`
}

// NormalizeItemName is the identity rule for items within a list.
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Recalculate restores the list's derived fields: totalEstimatedCost is
// exactly the sum of item estimatedPrice (missing treated as 0), and
// completedItems counts purchased items. Call after every mutation.
func (l *ShoppingList) Recalculate() {
	total := 0.0
	completed := 0
	for _, item := range l.Items {
		total += item.EstimatedPrice
		if item.Purchased {
			completed++
		}
	}
	l.TotalEstimatedCost = total
	l.CompletedItems = completed
}

// FindItem returns the index of the item with the given normalized name, or
// -1 when absent.
func (l *ShoppingList) FindItem(name string) int {
	norm := NormalizeItemName(name)
	for i, item := range l.Items {
		if NormalizeItemName(item.Name) == norm {
			return i
		}
	}
	return -1
}
