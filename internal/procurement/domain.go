package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// PIStatus is the proforma invoice lifecycle status.
type PIStatus string

const (
	PIStatusDraft             PIStatus = "DRAFT"
	PIStatusSent              PIStatus = "SENT"
	PIStatusUnderReview       PIStatus = "UNDER_REVIEW"
	PIStatusApproved          PIStatus = "APPROVED"
	PIStatusRejected          PIStatus = "REJECTED"
	PIStatusRevisionRequested PIStatus = "REVISION_REQUESTED"
	PIStatusPOGenerated       PIStatus = "PO_GENERATED"
	PIStatusFulfilled         PIStatus = "FULFILLED"
	PIStatusBilled            PIStatus = "BILLED"
	PIStatusPaid              PIStatus = "PAID"
	PIStatusCancelled         PIStatus = "CANCELLED"
	PIStatusExpired           PIStatus = "EXPIRED"
)

// AllPIStatuses lists every PI status in lifecycle order.
var AllPIStatuses = []PIStatus{
	PIStatusDraft, PIStatusSent, PIStatusUnderReview, PIStatusApproved, PIStatusRejected,
	PIStatusRevisionRequested, PIStatusPOGenerated, PIStatusFulfilled, PIStatusBilled,
	PIStatusPaid, PIStatusCancelled, PIStatusExpired,
}

// POStatus is the purchase order lifecycle status.
type POStatus string

const (
	POStatusPending      POStatus = "PENDING"
	POStatusAcknowledged POStatus = "ACKNOWLEDGED"
	POStatusInProgress   POStatus = "IN_PROGRESS"
	POStatusShipped      POStatus = "SHIPPED"
	POStatusDelivered    POStatus = "DELIVERED"
	POStatusCancelled    POStatus = "CANCELLED"
)

// InvoiceStatus is the invoice lifecycle status.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusViewed        InvoiceStatus = "VIEWED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// CreditTerms control the invoice due date.
type CreditTerms string

const (
	CreditImmediate CreditTerms = "IMMEDIATE"
	CreditNet30     CreditTerms = "NET_30"
	CreditNet60     CreditTerms = "NET_60"
	CreditNet90     CreditTerms = "NET_90"
)

// Days returns the payment window. Unknown terms fall back to NET_30.
func (c CreditTerms) Days() int {
	switch c {
	case CreditImmediate:
		return 0
	case CreditNet60:
		return 60
	case CreditNet90:
		return 90
	default:
		return 30
	}
}

// LineItem is a priced line shared by every procurement document.
type LineItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	VariantID   *int64          `json:"variantId,omitempty"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// Amounts are the persisted totals of a document.
type Amounts struct {
	TaxRate   decimal.Decimal `json:"taxRate"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// ProformaInvoice is the seller's quotation to a buyer.
type ProformaInvoice struct {
	ID            int64       `json:"id"`
	Number        string      `json:"piNumber"`
	SellerID      int64       `json:"sellerId"`
	BuyerID       *int64      `json:"buyerId,omitempty"`
	ValidUntil    time.Time   `json:"validUntil"`
	CreditTerms   CreditTerms `json:"creditTerms"`
	DeliveryTerms string      `json:"deliveryTerms,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Amounts
	Status    PIStatus   `json:"status"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
	Items     []LineItem `json:"items"`
}

// POItem adds fulfilment counters to a line.
type POItem struct {
	LineItem
	QuantityShipped  int64 `json:"quantityShipped"`
	QuantityReceived int64 `json:"quantityReceived"`
}

// BilledQuantity is the quantity an invoice charges for.
func (i POItem) BilledQuantity() int64 {
	if i.QuantityReceived > 0 {
		return i.QuantityReceived
	}
	return i.Quantity
}

// PurchaseOrder is the buyer's order fulfilled by the seller.
type PurchaseOrder struct {
	ID       int64  `json:"id"`
	Number   string `json:"poNumber"`
	PIID     *int64 `json:"piId,omitempty"`
	SellerID int64  `json:"sellerId"`
	BuyerID  *int64 `json:"buyerId,omitempty"`
	Amounts
	Status         POStatus   `json:"status"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ShippedAt      *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	InternalNotes  string     `json:"internalNotes,omitempty"`
	CancelReason   string     `json:"cancelReason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"-"`
	Items          []POItem   `json:"items"`
}

// Item returns the PO line with the given id.
func (po PurchaseOrder) Item(id int64) (POItem, bool) {
	for _, item := range po.Items {
		if item.ID == id {
			return item, true
		}
	}
	return POItem{}, false
}

// Invoice bills a delivered purchase order.
type Invoice struct {
	ID       int64     `json:"id"`
	Number   string    `json:"invoiceNumber"`
	POID     *int64    `json:"poId,omitempty"`
	PIID     *int64    `json:"piId,omitempty"`
	SellerID int64     `json:"sellerId"`
	BuyerID  *int64    `json:"buyerId,omitempty"`
	DueDate  time.Time `json:"dueDate"`
	Amounts
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	BalanceAmount decimal.Decimal `json:"balanceAmount"`
	Status        InvoiceStatus   `json:"status"`
	PaymentTerms  string          `json:"paymentTerms,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	SentAt        *time.Time      `json:"sentAt,omitempty"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     *time.Time      `json:"-"`
	Items         []LineItem      `json:"items"`
	Payments      []PaymentRecord `json:"payments"`
}

// PaymentRecord is one payment received against an invoice.
type PaymentRecord struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paidAt"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ReadOptions tune repository reads.
type ReadOptions struct {
	// IncludeDeleted returns soft-deleted rows as well.
	IncludeDeleted bool
}
