package domain

import "time"

// Defaults applied to pantry rows built from sparse local records.
const (
	DefaultUnit     = "piece"
	DefaultLocation = "pantry"
	DefaultQuantity = 1
)

// PantryItem is a single inventory entry, local or remote.
type PantryItem struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	Name      string     `json:"name"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit"`
	Location  string     `json:"location"`
	Category  string     `json:"category"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ApplyDefaults fills the fields local records routinely omit.
func (p *PantryItem) ApplyDefaults() {
	if p.Quantity <= 0 {
		p.Quantity = DefaultQuantity
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	if p.Location == "" {
		p.Location = DefaultLocation
	}
	if p.Category == "" {
		p.Category = "other"
	}
}
