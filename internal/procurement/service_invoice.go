package procurement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/totals"
)

// GenerateInvoice bills a DELIVERED PO. The invoice copies the PO totals, takes
// its due date and tax rate from the originating PI and moves that PI to
// BILLED, all in one transaction guarded by a per-PO lock.
func (s *Service) GenerateInvoice(ctx context.Context, actor shared.Actor, req GenerateInvoiceRequest) (Invoice, error) {
	var (
		created Invoice
		changes []transition
	)
	err := s.withLock(ctx, shared.InvoiceGenerationLockKey(req.POID), func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			changes = nil
			po, err := tx.LockPO(ctx, actor.SellerID, req.POID)
			if err != nil {
				return err
			}
			exists, err := tx.ActiveInvoiceExists(ctx, po.ID)
			if err != nil {
				return err
			}
			if exists {
				return ErrInvoiceExists
			}
			if po.Status != POStatusDelivered {
				return ErrPONotDelivered
			}

			now := s.now()
			terms := CreditNet30
			taxRate := totals.DefaultTaxRate
			var pi *ProformaInvoice
			if po.PIID != nil {
				found, err := tx.LockPI(ctx, actor.SellerID, *po.PIID)
				switch {
				case err == nil:
					pi = &found
					terms = found.CreditTerms
					taxRate = found.TaxRate
				case shared.KindOf(err) != shared.ErrNotFound:
					return err
				}
			}

			inv := Invoice{
				POID:          &po.ID,
				PIID:          po.PIID,
				SellerID:      actor.SellerID,
				BuyerID:       po.BuyerID,
				DueDate:       DueDateFor(now, terms),
				Amounts:       po.Amounts,
				PaidAmount:    decimal.Zero,
				BalanceAmount: po.Total,
				Status:        InvoiceStatusDraft,
				CreatedAt:     now,
			}
			inv.TaxRate = taxRate
			if req.Notes != nil {
				inv.Notes = *req.Notes
			}
			if req.PaymentTerms != nil {
				inv.PaymentTerms = *req.PaymentTerms
			} else {
				inv.PaymentTerms = string(terms)
			}
			for _, item := range po.Items {
				qty := item.BilledQuantity()
				inv.Items = append(inv.Items, LineItem{
					ProductID:   item.ProductID,
					VariantID:   item.VariantID,
					Description: item.Description,
					Quantity:    qty,
					UnitPrice:   item.UnitPrice,
					TotalPrice:  totals.LineTotal(qty, item.UnitPrice),
				})
			}

			number, err := s.numbers.Next(ctx, numbering.DocInvoice)
			if err != nil {
				return err
			}
			inv.Number = number
			created, err = tx.CreateInvoice(ctx, inv)
			if err != nil {
				return err
			}
			if pi != nil {
				change, err := s.advancePI(ctx, tx, actor.SellerID, pi.ID, PIStatusBilled)
				if err != nil {
					return err
				}
				if change != nil {
					changes = append(changes, *change)
				}
			}
			return nil
		})
	})
	if err != nil {
		return Invoice{}, err
	}
	changes = append([]transition{{document: docInvoice, id: created.ID, to: string(InvoiceStatusDraft), meta: map[string]any{"number": created.Number, "po_id": req.POID}}}, changes...)
	s.afterCommit(ctx, actor, changes...)
	return created, nil
}

// SendInvoice moves a DRAFT invoice to SENT.
func (s *Service) SendInvoice(ctx context.Context, actor shared.Actor, id int64) (Invoice, error) {
	return s.transitionInvoice(ctx, actor, id, func(ctx context.Context, tx TxRepository, inv *Invoice, current InvoiceStatus) ([]transition, error) {
		if current != InvoiceStatusDraft {
			return nil, ErrInvoiceNotDraft
		}
		inv.Status = InvoiceStatusSent
		inv.SentAt = timePtr(s.now())
		return nil, nil
	})
}

// MarkInvoiceViewed records that the buyer opened a SENT invoice.
func (s *Service) MarkInvoiceViewed(ctx context.Context, actor shared.Actor, id int64) (Invoice, error) {
	return s.transitionInvoice(ctx, actor, id, func(ctx context.Context, tx TxRepository, inv *Invoice, current InvoiceStatus) ([]transition, error) {
		if current != InvoiceStatusSent {
			return nil, ErrInvoiceNotSent
		}
		inv.Status = InvoiceStatusViewed
		return nil, nil
	})
}

// MarkUnpaid flags an invoice as OVERDUE by hand. Settled invoices are refused.
func (s *Service) MarkUnpaid(ctx context.Context, actor shared.Actor, id int64) (Invoice, error) {
	return s.transitionInvoice(ctx, actor, id, func(ctx context.Context, tx TxRepository, inv *Invoice, current InvoiceStatus) ([]transition, error) {
		if current == InvoiceStatusPaid || current == InvoiceStatusCancelled {
			return nil, ErrInvoiceSettled
		}
		inv.Status = InvoiceStatusOverdue
		return nil, nil
	})
}

// CancelInvoice voids an invoice that has not received payments. The PO can
// then be invoiced again; the PI keeps its BILLED status.
func (s *Service) CancelInvoice(ctx context.Context, actor shared.Actor, id int64) (Invoice, error) {
	return s.transitionInvoice(ctx, actor, id, func(ctx context.Context, tx TxRepository, inv *Invoice, current InvoiceStatus) ([]transition, error) {
		if !current.Cancellable() {
			return nil, ErrInvoiceNotVoid
		}
		inv.Status = InvoiceStatusCancelled
		return nil, nil
	})
}

// RecordPayment books a payment against an open invoice. A payment settling
// the balance marks the invoice PAID and its PI PAID.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, idemKey string, id int64, req RecordPaymentRequest) (Invoice, error) {
	release, err := s.claimKey(ctx, actor.SellerID, idemKey, moduleRecordPayment)
	if err != nil {
		return Invoice{}, err
	}
	var inv Invoice
	err = s.withLock(ctx, shared.DocumentLockKey("invoice", id), func(ctx context.Context) error {
		var err error
		inv, err = s.transitionInvoice(ctx, actor, id, func(ctx context.Context, tx TxRepository, inv *Invoice, current InvoiceStatus) ([]transition, error) {
			if !current.Payable() {
				return nil, ErrInvoiceNotPayable
			}
			amount := req.Amount.Round(2)
			if !amount.IsPositive() || amount.GreaterThan(inv.BalanceAmount) {
				return nil, ErrPaymentAmount
			}
			now := s.now()
			paidAt := now
			if req.PaidAt != nil {
				paidAt = *req.PaidAt
			}
			payment, err := tx.InsertPayment(ctx, PaymentRecord{
				InvoiceID: inv.ID,
				Amount:    amount,
				PaidAt:    paidAt,
				Method:    req.Method,
				Reference: req.Reference,
				CreatedAt: now,
			})
			if err != nil {
				return nil, err
			}
			inv.Payments = append(inv.Payments, payment)
			inv.PaidAmount = inv.PaidAmount.Add(payment.Amount)
			inv.BalanceAmount = inv.Total.Sub(inv.PaidAmount)
			if inv.BalanceAmount.IsPositive() {
				inv.Status = InvoiceStatusPartiallyPaid
				return nil, nil
			}
			inv.Status = InvoiceStatusPaid
			inv.PaidAt = &paidAt
			if inv.PIID == nil {
				return nil, nil
			}
			change, err := s.advancePI(ctx, tx, actor.SellerID, *inv.PIID, PIStatusPaid)
			if err != nil || change == nil {
				return nil, err
			}
			return []transition{*change}, nil
		})
		return err
	})
	if err != nil {
		release()
		return Invoice{}, err
	}
	return inv, nil
}

// GetInvoice returns an owned invoice with its effective status.
func (s *Service) GetInvoice(ctx context.Context, actor shared.Actor, id int64) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, actor.SellerID, id, ReadOptions{})
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = inv.EffectiveStatus(s.now())
	return inv, nil
}

func (s *Service) transitionInvoice(ctx context.Context, actor shared.Actor, id int64, apply func(context.Context, TxRepository, *Invoice, InvoiceStatus) ([]transition, error)) (Invoice, error) {
	var (
		result  Invoice
		from    InvoiceStatus
		changes []transition
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		from = inv.Status
		changes, err = apply(ctx, tx, &inv, inv.EffectiveStatus(s.now()))
		if err != nil {
			return err
		}
		inv.UpdatedAt = s.now()
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	changes = append([]transition{{document: docInvoice, id: result.ID, from: string(from), to: string(result.Status), meta: map[string]any{"number": result.Number}}}, changes...)
	s.afterCommit(ctx, actor, changes...)
	return result, nil
}
