// Package category assigns grocery categories from item names. The table is
// static and ordered; the first row whose keyword matches wins, so category
// assignment stays deterministic and observable.
package category

import "strings"

type rule struct {
	keywords []string
	category string
}

// Table order matters: earlier rows shadow later ones (e.g. "chicken stock"
// should categorize as pantry staple before poultry gets a chance).
var rules = []rule{
	{[]string{"stock", "broth", "flour", "sugar", "rice", "pasta", "oil", "vinegar", "salt", "pepper", "spice"}, "pantry staples"},
	{[]string{"milk", "cheese", "yogurt", "butter", "cream", "egg"}, "dairy & eggs"},
	{[]string{"chicken", "beef", "pork", "turkey", "lamb", "sausage", "bacon"}, "meat"},
	{[]string{"salmon", "tuna", "shrimp", "cod", "fish"}, "seafood"},
	{[]string{"apple", "banana", "orange", "berry", "grape", "lemon", "lime", "melon"}, "fruit"},
	{[]string{"lettuce", "tomato", "onion", "garlic", "carrot", "potato", "pepper", "spinach", "broccoli", "cucumber"}, "vegetables"},
	{[]string{"bread", "bagel", "tortilla", "bun", "croissant"}, "bakery"},
	{[]string{"frozen", "ice cream"}, "frozen"},
	{[]string{"juice", "soda", "coffee", "tea", "water", "wine", "beer"}, "beverages"},
	{[]string{"chip", "cracker", "cookie", "candy", "chocolate", "nut"}, "snacks"},
}

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "other"

// Categorize maps an item name to its category, first match wins.
func Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lower, keyword) {
				return r.category
			}
		}
	}
	return DefaultCategory
}
