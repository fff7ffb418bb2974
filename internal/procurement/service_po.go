package procurement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/totals"
)

// IntakePO stores a buyer purchase order as PENDING. A PO raised against a PI
// copies the PI's items and totals and moves the PI to PO_GENERATED in the
// same transaction.
func (s *Service) IntakePO(ctx context.Context, req IntakePORequest) (PurchaseOrder, error) {
	actor := shared.Actor{SellerID: req.SellerID}
	if req.PIID == nil && len(req.Items) == 0 {
		return PurchaseOrder{}, ErrPOItemsRequired
	}
	if req.PIID == nil {
		if err := s.ensureItems(ctx, actor, req.Items); err != nil {
			return PurchaseOrder{}, err
		}
	}

	var (
		created PurchaseOrder
		changes []transition
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po := PurchaseOrder{
			PIID:          req.PIID,
			SellerID:      req.SellerID,
			BuyerID:       req.BuyerID,
			Status:        POStatusPending,
			InternalNotes: req.Notes,
			CreatedAt:     s.now(),
		}
		if req.PIID != nil {
			pi, err := tx.LockPI(ctx, req.SellerID, *req.PIID)
			if err != nil {
				return err
			}
			from := pi.EffectiveStatus(s.now())
			if from != PIStatusApproved {
				return ErrPINotApproved
			}
			po.Amounts = pi.Amounts
			if po.BuyerID == nil {
				po.BuyerID = pi.BuyerID
			}
			for _, item := range pi.Items {
				item.ID = 0
				po.Items = append(po.Items, POItem{LineItem: item})
			}
			pi.Status = PIStatusPOGenerated
			pi.UpdatedAt = s.now()
			if err := tx.UpdatePI(ctx, pi); err != nil {
				return err
			}
			changes = append(changes, transition{document: docPI, id: pi.ID, from: string(from), to: string(PIStatusPOGenerated), meta: map[string]any{"number": pi.Number}})
		} else {
			items, lines, err := buildItems(req.Items)
			if err != nil {
				return err
			}
			po.Amounts, err = computeAmounts(lines, decimalOr(req.TaxRate, totals.DefaultTaxRate), decimalOr(req.Discount, decimal.Zero))
			if err != nil {
				return err
			}
			for _, item := range items {
				po.Items = append(po.Items, POItem{LineItem: item})
			}
		}

		number, err := s.numbers.Next(ctx, numbering.DocPurchaseOrder)
		if err != nil {
			return err
		}
		po.Number = number
		created, err = tx.CreatePO(ctx, po)
		return err
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	changes = append([]transition{{document: docPO, id: created.ID, to: string(POStatusPending), meta: map[string]any{"number": created.Number}}}, changes...)
	s.afterCommit(ctx, actor, changes...)
	return created, nil
}

// AcknowledgePO confirms a PENDING PO.
func (s *Service) AcknowledgePO(ctx context.Context, actor shared.Actor, id int64, req AcknowledgePORequest) (PurchaseOrder, error) {
	return s.transitionPO(ctx, actor, id, func(ctx context.Context, tx TxRepository, po *PurchaseOrder) ([]transition, error) {
		if po.Status != POStatusPending {
			return nil, ErrPONotPending
		}
		po.Status = POStatusAcknowledged
		if po.AcknowledgedAt == nil {
			po.AcknowledgedAt = timePtr(s.now())
		}
		if req.Notes != nil {
			po.InternalNotes = *req.Notes
		}
		return nil, nil
	})
}

// UpdatePOStatus advances a PO along the fulfilment allow-list. Delivering a
// PO raised from a PI marks the PI FULFILLED.
func (s *Service) UpdatePOStatus(ctx context.Context, actor shared.Actor, id int64, req UpdatePOStatusRequest) (PurchaseOrder, error) {
	return s.transitionPO(ctx, actor, id, func(ctx context.Context, tx TxRepository, po *PurchaseOrder) ([]transition, error) {
		if !po.Status.CanUpdateTo(req.Status) {
			return nil, errTransition(po.Status, req.Status)
		}
		po.Status = req.Status
		now := s.now()
		switch req.Status {
		case POStatusShipped:
			if po.ShippedAt == nil {
				po.ShippedAt = &now
			}
		case POStatusDelivered:
			if po.DeliveredAt == nil {
				po.DeliveredAt = &now
			}
		}
		if req.TrackingNumber != nil {
			po.TrackingNumber = *req.TrackingNumber
		}
		if req.Notes != nil {
			po.InternalNotes = *req.Notes
		}
		if req.Status == POStatusDelivered && po.PIID != nil {
			change, err := s.advancePI(ctx, tx, po.SellerID, *po.PIID, PIStatusFulfilled)
			if err != nil || change == nil {
				return nil, err
			}
			return []transition{*change}, nil
		}
		return nil, nil
	})
}

// CancelPO cancels a PO that has not been delivered.
func (s *Service) CancelPO(ctx context.Context, actor shared.Actor, id int64, req CancelPORequest) (PurchaseOrder, error) {
	return s.transitionPO(ctx, actor, id, func(ctx context.Context, tx TxRepository, po *PurchaseOrder) ([]transition, error) {
		if !po.Status.Cancellable() {
			return nil, ErrPONotCancelable
		}
		po.Status = POStatusCancelled
		po.CancelledAt = timePtr(s.now())
		po.CancelReason = req.Reason
		return nil, nil
	})
}

// UpdateItemQuantities sets shipped and received counters on PO lines. Both
// must stay within 0 and the ordered quantity.
func (s *Service) UpdateItemQuantities(ctx context.Context, actor shared.Actor, id int64, req UpdateItemQuantitiesRequest) (PurchaseOrder, error) {
	var updated PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockPO(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		if po.Status == POStatusCancelled {
			return ErrPOCancelled
		}
		for _, change := range req.Items {
			item, ok := po.Item(change.ItemID)
			if !ok {
				return errItemNotInPO(change.ItemID)
			}
			if change.QuantityShipped < 0 || change.QuantityShipped > item.Quantity {
				return ErrShippedQuantity
			}
			item.QuantityShipped = change.QuantityShipped
			if change.QuantityReceived != nil {
				if *change.QuantityReceived < 0 || *change.QuantityReceived > item.Quantity {
					return ErrReceivedQuantity
				}
				item.QuantityReceived = *change.QuantityReceived
			}
			if err := tx.UpdatePOItem(ctx, item); err != nil {
				return err
			}
			for i := range po.Items {
				if po.Items[i].ID == item.ID {
					po.Items[i] = item
				}
			}
		}
		po.UpdatedAt = s.now()
		if err := tx.UpdatePO(ctx, po); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.bumpCache(ctx, actor.SellerID)
	return updated, nil
}

// GetPO returns an owned, non-deleted PO.
func (s *Service) GetPO(ctx context.Context, actor shared.Actor, id int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, actor.SellerID, id, ReadOptions{})
}

func (s *Service) transitionPO(ctx context.Context, actor shared.Actor, id int64, apply func(context.Context, TxRepository, *PurchaseOrder) ([]transition, error)) (PurchaseOrder, error) {
	var (
		result  PurchaseOrder
		from    POStatus
		changes []transition
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockPO(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		from = po.Status
		changes, err = apply(ctx, tx, &po)
		if err != nil {
			return err
		}
		po.UpdatedAt = s.now()
		if err := tx.UpdatePO(ctx, po); err != nil {
			return err
		}
		result = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	changes = append([]transition{{document: docPO, id: result.ID, from: string(from), to: string(result.Status), meta: map[string]any{"number": result.Number}}}, changes...)
	s.afterCommit(ctx, actor, changes...)
	return result, nil
}
