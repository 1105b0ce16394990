package catalog

import "time"

// Product is the catalog entry. Price is in integer minor units (cents);
// Stock is the authoritative counter the inventory gate decrements.
type Product struct {
	ID          string
	Name        string
	Description string
	ImageURL    *string
	Price       int64
	Stock       int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
