package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest is a priced line in a PI or PO request.
type ItemRequest struct {
	ProductID   int64           `json:"productId" validate:"required,gt=0"`
	VariantID   *int64          `json:"variantId,omitempty" validate:"omitempty,gt=0"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    int64           `json:"quantity" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// CreatePIRequest is the payload of pi.create.
type CreatePIRequest struct {
	BuyerID       *int64           `json:"buyerId,omitempty" validate:"omitempty,gt=0"`
	ValidUntil    time.Time        `json:"validUntil" validate:"required"`
	CreditTerms   CreditTerms      `json:"creditTerms" validate:"required,oneof=IMMEDIATE NET_30 NET_60 NET_90"`
	DeliveryTerms string           `json:"deliveryTerms,omitempty" validate:"max=500"`
	Notes         string           `json:"notes,omitempty" validate:"max=2000"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Items         []ItemRequest    `json:"items" validate:"required,min=1,dive"`
}

// UpdatePIRequest carries the optional fields of pi.update. Nil leaves a field
// untouched; Items, when present, replaces the whole item set.
type UpdatePIRequest struct {
	BuyerID       *int64           `json:"buyerId,omitempty" validate:"omitempty,gt=0"`
	ValidUntil    *time.Time       `json:"validUntil,omitempty"`
	CreditTerms   *CreditTerms     `json:"creditTerms,omitempty" validate:"omitempty,oneof=IMMEDIATE NET_30 NET_60 NET_90"`
	DeliveryTerms *string          `json:"deliveryTerms,omitempty" validate:"omitempty,max=500"`
	Notes         *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TaxRate       *decimal.Decimal `json:"taxRate,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	Items         *[]ItemRequest   `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// PIReviewDecision is the buyer's verdict on a sent PI.
type PIReviewDecision string

const (
	ReviewStart           PIReviewDecision = "UNDER_REVIEW"
	ReviewApprove         PIReviewDecision = "APPROVED"
	ReviewReject          PIReviewDecision = "REJECTED"
	ReviewRequestRevision PIReviewDecision = "REVISION_REQUESTED"
)

// ReviewPIRequest is delivered by the buyer side through the job queue.
type ReviewPIRequest struct {
	SellerID int64            `json:"sellerId" validate:"required,gt=0"`
	PIID     int64            `json:"piId" validate:"required,gt=0"`
	BuyerID  *int64           `json:"buyerId,omitempty" validate:"omitempty,gt=0"`
	Decision PIReviewDecision `json:"decision" validate:"required,oneof=UNDER_REVIEW APPROVED REJECTED REVISION_REQUESTED"`
}

// IntakePORequest is a buyer purchase order delivered through the job queue.
// When PIID is set the items and totals are taken from the approved PI.
type IntakePORequest struct {
	SellerID int64            `json:"sellerId" validate:"required,gt=0"`
	PIID     *int64           `json:"piId,omitempty" validate:"omitempty,gt=0"`
	BuyerID  *int64           `json:"buyerId,omitempty" validate:"omitempty,gt=0"`
	Notes    string           `json:"notes,omitempty" validate:"max=2000"`
	TaxRate  *decimal.Decimal `json:"taxRate,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Items    []ItemRequest    `json:"items,omitempty" validate:"omitempty,dive"`
}

// AcknowledgePORequest is the payload of po.acknowledge.
type AcknowledgePORequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdatePOStatusRequest is the payload of po.updateStatus.
type UpdatePOStatusRequest struct {
	Status         POStatus `json:"status" validate:"required,oneof=IN_PROGRESS SHIPPED DELIVERED"`
	TrackingNumber *string  `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ItemQuantityRequest sets fulfilment counters of one PO line.
type ItemQuantityRequest struct {
	ItemID           int64  `json:"itemId" validate:"required,gt=0"`
	QuantityShipped  int64  `json:"quantityShipped"`
	QuantityReceived *int64 `json:"quantityReceived,omitempty"`
}

// UpdateItemQuantitiesRequest is the payload of po.updateItemQuantities.
type UpdateItemQuantitiesRequest struct {
	Items []ItemQuantityRequest `json:"items" validate:"required,min=1,dive"`
}

// CancelPORequest is the payload of po.cancel.
type CancelPORequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// GenerateInvoiceRequest is the payload of invoice.generateFromPO.
type GenerateInvoiceRequest struct {
	POID         int64   `json:"poId" validate:"required,gt=0"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PaymentTerms *string `json:"paymentTerms,omitempty" validate:"omitempty,max=200"`
}

// RecordPaymentRequest is the payload of invoice.recordPayment.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    *time.Time      `json:"paidAt,omitempty"`
	Method    string          `json:"method" validate:"required,max=50"`
	Reference string          `json:"reference,omitempty" validate:"max=100"`
}
