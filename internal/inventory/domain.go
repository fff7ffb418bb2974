package inventory

import (
	"time"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// ProductLocation binds one product or one variant to a bin.
type ProductLocation struct {
	ID               int64     `json:"id"`
	SellerID         int64     `json:"sellerId"`
	ProductID        *int64    `json:"productId,omitempty"`
	ProductVariantID *int64    `json:"productVariantId,omitempty"`
	BinID            int64     `json:"binId"`
	Quantity         int64     `json:"quantity"`
	LocationCode     string    `json:"locationCode,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Item identifies the stocked thing. Exactly one field is set.
type Item struct {
	ProductID        *int64
	ProductVariantID *int64
}

func (l ProductLocation) Item() Item {
	return Item{ProductID: l.ProductID, ProductVariantID: l.ProductVariantID}
}

// AssignRequest is the payload of locations.assign.
type AssignRequest struct {
	ProductID        *int64 `json:"productId,omitempty" validate:"omitempty,gt=0"`
	ProductVariantID *int64 `json:"productVariantId,omitempty" validate:"omitempty,gt=0"`
	BinID            int64  `json:"binId" validate:"required,gt=0"`
	Quantity         int64  `json:"quantity"`
}

// UpdateRequest replaces the quantity of a location.
type UpdateRequest struct {
	Quantity int64 `json:"quantity"`
}

// AvailableBinsQuery narrows getAvailableBins. When an item is given, bins
// already holding it are left out.
type AvailableBinsQuery struct {
	WarehouseID      *int64
	ProductID        *int64
	ProductVariantID *int64
}

var (
	ErrLocationNotFound = shared.NotFound("Product location not found")
	ErrItemChoice       = shared.BadRequest("Provide exactly one of productId or productVariantId")
	ErrQuantity         = shared.BadRequest("Quantity must be a positive integer")
	ErrLocationExists   = shared.Conflict("This item already has a location in the selected bin")
)
