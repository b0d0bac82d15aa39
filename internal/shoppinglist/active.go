package shoppinglist

import "larder/internal/domain"

// SelectActiveList picks the user's active list: the first list flagged
// active, else the first in creation order. The second return is false when
// the user has no lists. Ties on the active flag resolve by slice order,
// which callers keep as creation order.
func SelectActiveList(lists []domain.ShoppingList) (domain.ShoppingList, bool) {
	for _, list := range lists {
		if list.IsActive {
			return list, true
		}
	}
	if len(lists) > 0 {
		return lists[0], true
	}
	return domain.ShoppingList{}, false
}
