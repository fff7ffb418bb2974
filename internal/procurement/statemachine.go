package procurement

import "time"

var piTransitions = map[PIStatus][]PIStatus{
	PIStatusDraft:             {PIStatusSent, PIStatusCancelled},
	PIStatusSent:              {PIStatusUnderReview, PIStatusApproved, PIStatusRejected, PIStatusRevisionRequested, PIStatusCancelled, PIStatusExpired},
	PIStatusUnderReview:       {PIStatusApproved, PIStatusRejected, PIStatusRevisionRequested},
	PIStatusRevisionRequested: {PIStatusDraft, PIStatusUnderReview},
	PIStatusApproved:          {PIStatusPOGenerated},
	PIStatusPOGenerated:       {PIStatusFulfilled, PIStatusBilled},
	PIStatusFulfilled:         {PIStatusBilled},
	PIStatusBilled:            {PIStatusPaid},
}

// poStatusUpdates is the allow-list used by UpdatePOStatus. Acknowledge and
// cancel have dedicated operations.
var poStatusUpdates = map[POStatus][]POStatus{
	POStatusAcknowledged: {POStatusInProgress, POStatusShipped},
	POStatusInProgress:   {POStatusShipped},
	POStatusShipped:      {POStatusDelivered},
}

var poCancellable = []POStatus{POStatusPending, POStatusAcknowledged, POStatusInProgress, POStatusShipped}

var (
	invoicePayable     = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue}
	invoiceCancellable = []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed}
	invoiceAgeable     = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartiallyPaid}
)

// Terminal reports whether no further transition leaves s.
func (s PIStatus) Terminal() bool {
	switch s {
	case PIStatusPaid, PIStatusCancelled, PIStatusRejected, PIStatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal PI transition.
func (s PIStatus) CanTransition(to PIStatus) bool {
	return contains(piTransitions[s], to)
}

// CanUpdateTo reports whether the PO status allow-list permits from → to.
func (s POStatus) CanUpdateTo(to POStatus) bool {
	return contains(poStatusUpdates[s], to)
}

// Cancellable reports whether a PO in s may be cancelled.
func (s POStatus) Cancellable() bool {
	return contains(poCancellable, s)
}

// Payable reports whether payments may be recorded in s.
func (s InvoiceStatus) Payable() bool {
	return contains(invoicePayable, s)
}

// Cancellable reports whether an invoice in s may be cancelled.
func (s InvoiceStatus) Cancellable() bool {
	return contains(invoiceCancellable, s)
}

// EffectiveStatus is the status reported to callers at now. A SENT PI past its
// validity reads as EXPIRED until the sweep persists it.
func (pi ProformaInvoice) EffectiveStatus(now time.Time) PIStatus {
	if pi.Status == PIStatusSent && !pi.ValidUntil.IsZero() && now.After(pi.ValidUntil) {
		return PIStatusExpired
	}
	return pi.Status
}

// EffectiveStatus reports OVERDUE for open invoices past their due date.
func (inv Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if contains(invoiceAgeable, inv.Status) && !inv.DueDate.IsZero() && now.After(inv.DueDate) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}

// DueDateFor computes the invoice due date from issue time and credit terms.
func DueDateFor(issued time.Time, terms CreditTerms) time.Time {
	return issued.AddDate(0, 0, terms.Days())
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
