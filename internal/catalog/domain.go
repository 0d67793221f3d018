package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Collection is the top of the hierarchy and the anchor for ownership,
// grants and public visibility.
type Collection struct {
	ID        uuid.UUID
	OwnerID   int64
	Name      string
	Slug      string
	Visible   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category groups products inside a collection.
type Category struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Name         string
	Position     int
	CreatedAt    time.Time
}

// Product is a sellable item inside a category.
type Product struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	PriceCents int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
