package inventory

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("invalid inventory item")
)

// Item is one part kept in the shop inventory.
type Item struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	Type          string    `json:"type" db:"type"`
	Manufacturer  string    `json:"manufacturer" db:"manufacturer"`
	Available     int       `json:"available" db:"available"`
	Used          int       `json:"used" db:"used"`
	Pending       int       `json:"pending" db:"pending"`
	PricePerPart  float64   `json:"price_per_part" db:"price_per_part"`
	ShelfLocation string    `json:"shelf_location" db:"shelf_location"`
	Barcode       string    `json:"barcode" db:"barcode"`
	DateAdded     time.Time `json:"date_added" db:"date_added"`
	Notes         string    `json:"notes" db:"notes"`
}

func (i Item) LowStock(threshold int) bool {
	return i.Available <= threshold
}

// CreateItemRequest adds a part.
type CreateItemRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	Manufacturer  string  `json:"manufacturer"`
	Quantity      int     `json:"quantity"`
	PricePerPart  float64 `json:"price_per_part"`
	ShelfLocation string  `json:"shelf_location"`
	Barcode       string  `json:"barcode"`
	Notes         string  `json:"notes"`
}

// UpdateItemRequest patches a part. Nil fields are left alone.
type UpdateItemRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Available     *int     `json:"available"`
	Used          *int     `json:"used"`
	Pending       *int     `json:"pending"`
	PricePerPart  *float64 `json:"price_per_part"`
	ShelfLocation *string  `json:"shelf_location"`
	Notes         *string  `json:"notes"`
}

// ListResponse is the inventory listing with its low-stock summary.
type ListResponse struct {
	Items             []Item `json:"items"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	LowStockCount     int    `json:"low_stock_count"`
	TotalUsed         int    `json:"total_used"`
	TotalPending      int    `json:"total_pending"`
}

func seedDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// SeedItems is the inventory loaded in local mode.
func SeedItems() []Item {
	return []Item{
		{ID: "1", Name: "Brake Pads", Available: 50, Used: 20, Pending: 10, DateAdded: seedDate("2026-01-15")},
		{ID: "2", Name: "Tires - 11R22.5", Available: 30, Used: 15, Pending: 5, DateAdded: seedDate("2026-01-20")},
		{ID: "3", Name: "Oil Filter", Available: 100, Used: 45, Pending: 15, DateAdded: seedDate("2026-02-01")},
		{ID: "4", Name: "Air Filter", Available: 80, Used: 30, Pending: 10, DateAdded: seedDate("2026-02-05")},
		{ID: "5", Name: "LED Light Kit", Available: 25, Used: 8, Pending: 3, DateAdded: seedDate("2026-02-08")},
		{ID: "6", Name: "Suspension Bushings", Available: 60, Used: 22, Pending: 8, DateAdded: seedDate("2026-01-25")},
	}
}
