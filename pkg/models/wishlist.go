package models

import "time"

type WishlistItem struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Status    string    `json:"status"` // "wanted", "ordered", "owned"
	UpdatedAt time.Time `json:"updated_at"`
}
