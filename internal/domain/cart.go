package domain

import "time"

// Product is the storefront's view of a sellable item.
type Product struct {
	ID    int64   `json:"id" bson:"id"`
	Title string  `json:"title" bson:"title"`
	Price float64 `json:"price" bson:"price"`
	Image string  `json:"image" bson:"image"`
}

// LineItem is a product in the cart with the amount the shopper wants.
// Product fields are flattened next to amount in the stored form.
type LineItem struct {
	Product `bson:",inline"`
	Amount  int `json:"amount" bson:"amount"`
}

// Stock is the remotely sourced maximum available quantity for a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Snapshot is what slot backends that keep metadata persist for a session.
type Snapshot struct {
	SessionID string     `json:"session_id" bson:"session_id"`
	Items     []LineItem `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// IndexOf returns the position of the item with productID, or -1.
func IndexOf(items []LineItem, productID int64) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}

// CloneItems returns a copy of items that shares no backing array.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
