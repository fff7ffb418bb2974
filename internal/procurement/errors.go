package procurement

import "github.com/odyssey-erp/sellerdesk/internal/shared"

var (
	ErrPINotFound      = shared.NotFound("Proforma invoice not found")
	ErrPONotFound      = shared.NotFound("Purchase order not found")
	ErrInvoiceNotFound = shared.NotFound("Invoice not found")

	ErrPINotEditable   = shared.BadRequest("Can only edit PI in DRAFT status")
	ErrPINoItems       = shared.BadRequest("PI must have at least one item")
	ErrPINotSendable   = shared.BadRequest("Can only send PI in DRAFT status")
	ErrPINotCancelable = shared.BadRequest("Can only cancel PI in DRAFT or SENT status")
	ErrPINotDeletable  = shared.BadRequest("Can only delete PI in DRAFT or CANCELLED status")
	ErrPINotReopenable = shared.BadRequest("Can only reopen PI in REVISION_REQUESTED status")
	ErrPINotApproved   = shared.BadRequest("Purchase order requires an APPROVED proforma invoice")
	ErrTaxRate         = shared.BadRequest("Tax rate must be between 0 and 100")
	ErrDiscount        = shared.BadRequest("Discount must be between 0 and the subtotal")
	ErrItemQuantity    = shared.BadRequest("Item quantity must be at least 1")
	ErrItemPrice       = shared.BadRequest("Item unit price cannot be negative")

	ErrPONotPending      = shared.BadRequest("Can only acknowledge PO in PENDING status")
	ErrPOCancelled       = shared.BadRequest("Cannot update items of a cancelled PO")
	ErrPONotCancelable   = shared.BadRequest("Can only cancel PO before delivery")
	ErrPONotDelivered    = shared.BadRequest("Can only generate invoice for a DELIVERED PO")
	ErrShippedQuantity   = shared.BadRequest("Shipped quantity must be between 0 and the ordered quantity")
	ErrReceivedQuantity  = shared.BadRequest("Received quantity must be between 0 and the ordered quantity")
	ErrPOItemsRequired   = shared.BadRequest("Purchase order must have at least one item")
	ErrInvoiceExists     = shared.BadRequest("Invoice already exists for this PO")
	ErrInvoiceRace       = shared.Conflict("Invoice already exists for this PO")
	ErrInvoiceNotDraft   = shared.BadRequest("Can only send invoice in DRAFT status")
	ErrInvoiceNotSent    = shared.BadRequest("Can only mark a SENT invoice as viewed")
	ErrInvoiceSettled    = shared.BadRequest("Cannot mark a paid or cancelled invoice as unpaid")
	ErrInvoiceNotPayable = shared.BadRequest("Payments can only be recorded on sent or overdue invoices")
	ErrInvoiceNotVoid    = shared.BadRequest("Can only cancel invoice in DRAFT, SENT or VIEWED status")
	ErrPaymentAmount     = shared.BadRequest("Payment amount must be greater than 0 and not exceed the balance")

	ErrNumberCollision = shared.Conflict("Document number collision, please retry")
)

func errTransition(from, to any) error {
	return shared.BadRequest("Cannot transition from %s to %s", from, to)
}

func errItemNotInPO(itemID int64) error {
	return shared.BadRequest("Item %d does not belong to this PO", itemID)
}
