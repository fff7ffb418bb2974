package procurement

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/totals"
)

const (
	docPI      = "PI"
	docPO      = "PO"
	docInvoice = "INVOICE"

	moduleCreatePI      = "pi.create"
	moduleRecordPayment = "invoice.recordPayment"
)

// CreatePI validates the request, numbers the PI and stores it as DRAFT.
func (s *Service) CreatePI(ctx context.Context, actor shared.Actor, idemKey string, req CreatePIRequest) (ProformaInvoice, error) {
	if len(req.Items) == 0 {
		return ProformaInvoice{}, ErrPINoItems
	}
	items, lines, err := buildItems(req.Items)
	if err != nil {
		return ProformaInvoice{}, err
	}
	if err := s.ensureItems(ctx, actor, req.Items); err != nil {
		return ProformaInvoice{}, err
	}
	amounts, err := computeAmounts(lines, decimalOr(req.TaxRate, totals.DefaultTaxRate), decimalOr(req.Discount, decimal.Zero))
	if err != nil {
		return ProformaInvoice{}, err
	}
	release, err := s.claimKey(ctx, actor.SellerID, idemKey, moduleCreatePI)
	if err != nil {
		return ProformaInvoice{}, err
	}

	now := s.now()
	var created ProformaInvoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := s.numbers.Next(ctx, numbering.DocProformaInvoice)
		if err != nil {
			return err
		}
		created, err = tx.CreatePI(ctx, ProformaInvoice{
			Number:        number,
			SellerID:      actor.SellerID,
			BuyerID:       req.BuyerID,
			ValidUntil:    req.ValidUntil,
			CreditTerms:   req.CreditTerms,
			DeliveryTerms: req.DeliveryTerms,
			Notes:         req.Notes,
			Amounts:       amounts,
			Status:        PIStatusDraft,
			CreatedAt:     now,
			Items:         items,
		})
		return err
	})
	if err != nil {
		release()
		return ProformaInvoice{}, err
	}
	s.afterCommit(ctx, actor, transition{document: docPI, id: created.ID, to: string(PIStatusDraft), meta: map[string]any{"number": created.Number}})
	return created, nil
}

// UpdatePI applies the optional fields of req to a DRAFT PI. Items are replaced
// as a whole and totals recomputed whenever items, tax rate or discount change.
func (s *Service) UpdatePI(ctx context.Context, actor shared.Actor, id int64, req UpdatePIRequest) (ProformaInvoice, error) {
	if req.Items != nil {
		if err := s.ensureItems(ctx, actor, *req.Items); err != nil {
			return ProformaInvoice{}, err
		}
	}
	var updated ProformaInvoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pi, err := tx.LockPI(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		if pi.EffectiveStatus(s.now()) != PIStatusDraft {
			return ErrPINotEditable
		}
		if req.BuyerID != nil {
			pi.BuyerID = req.BuyerID
		}
		if req.ValidUntil != nil {
			pi.ValidUntil = *req.ValidUntil
		}
		if req.CreditTerms != nil {
			pi.CreditTerms = *req.CreditTerms
		}
		if req.DeliveryTerms != nil {
			pi.DeliveryTerms = *req.DeliveryTerms
		}
		if req.Notes != nil {
			pi.Notes = *req.Notes
		}

		lines := linesOf(pi.Items)
		if req.Items != nil {
			if len(*req.Items) == 0 {
				return ErrPINoItems
			}
			var items []LineItem
			items, lines, err = buildItems(*req.Items)
			if err != nil {
				return err
			}
			pi.Items, err = tx.ReplacePIItems(ctx, pi.ID, items)
			if err != nil {
				return err
			}
		}
		if req.Items != nil || req.TaxRate != nil || req.Discount != nil {
			pi.Amounts, err = computeAmounts(lines, decimalOr(req.TaxRate, pi.TaxRate), decimalOr(req.Discount, pi.Discount))
			if err != nil {
				return err
			}
		}
		pi.UpdatedAt = s.now()
		if err := tx.UpdatePI(ctx, pi); err != nil {
			return err
		}
		updated = pi
		return nil
	})
	if err != nil {
		return ProformaInvoice{}, err
	}
	s.bumpCache(ctx, actor.SellerID)
	return updated, nil
}

// SendPI moves a DRAFT PI with at least one item to SENT.
func (s *Service) SendPI(ctx context.Context, actor shared.Actor, id int64) (ProformaInvoice, error) {
	return s.transitionPI(ctx, actor, id, func(pi *ProformaInvoice, current PIStatus) error {
		if current != PIStatusDraft {
			return ErrPINotSendable
		}
		if len(pi.Items) == 0 {
			return ErrPINoItems
		}
		pi.Status = PIStatusSent
		pi.SentAt = timePtr(s.now())
		return nil
	})
}

// CancelPI cancels a DRAFT or SENT PI.
func (s *Service) CancelPI(ctx context.Context, actor shared.Actor, id int64) (ProformaInvoice, error) {
	return s.transitionPI(ctx, actor, id, func(pi *ProformaInvoice, current PIStatus) error {
		if current != PIStatusDraft && current != PIStatusSent {
			return ErrPINotCancelable
		}
		pi.Status = PIStatusCancelled
		return nil
	})
}

// ReopenPI returns a PI with requested revisions to DRAFT so it can be edited
// and sent again.
func (s *Service) ReopenPI(ctx context.Context, actor shared.Actor, id int64) (ProformaInvoice, error) {
	return s.transitionPI(ctx, actor, id, func(pi *ProformaInvoice, current PIStatus) error {
		if current != PIStatusRevisionRequested {
			return ErrPINotReopenable
		}
		pi.Status = PIStatusDraft
		pi.SentAt = nil
		return nil
	})
}

// DeletePI soft deletes a DRAFT or CANCELLED PI.
func (s *Service) DeletePI(ctx context.Context, actor shared.Actor, id int64) error {
	var number string
	var status PIStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pi, err := tx.LockPI(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		status = pi.EffectiveStatus(s.now())
		if status != PIStatusDraft && status != PIStatusCancelled {
			return ErrPINotDeletable
		}
		now := s.now()
		pi.DeletedAt = &now
		pi.UpdatedAt = now
		number = pi.Number
		return tx.UpdatePI(ctx, pi)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, actor, transition{document: docPI, id: id, from: string(status), to: "DELETED", meta: map[string]any{"number": number}})
	return nil
}

// GetPI returns an owned, non-deleted PI with its effective status.
func (s *Service) GetPI(ctx context.Context, actor shared.Actor, id int64) (ProformaInvoice, error) {
	pi, err := s.repo.GetPI(ctx, actor.SellerID, id, ReadOptions{})
	if err != nil {
		return ProformaInvoice{}, err
	}
	pi.Status = pi.EffectiveStatus(s.now())
	return pi, nil
}

// ReviewPI applies a buyer decision to a PI.
func (s *Service) ReviewPI(ctx context.Context, req ReviewPIRequest) (ProformaInvoice, error) {
	actor := shared.Actor{SellerID: req.SellerID}
	target := PIStatus(req.Decision)
	return s.transitionPI(ctx, actor, req.PIID, func(pi *ProformaInvoice, current PIStatus) error {
		if req.BuyerID != nil {
			if pi.BuyerID != nil && *pi.BuyerID != *req.BuyerID {
				return ErrPINotFound
			}
			pi.BuyerID = req.BuyerID
		}
		if current == target || !current.CanTransition(target) {
			return errTransition(current, target)
		}
		pi.Status = target
		return nil
	})
}

// transitionPI locks the PI, lets apply mutate it against the effective status
// and persists the result.
func (s *Service) transitionPI(ctx context.Context, actor shared.Actor, id int64, apply func(pi *ProformaInvoice, current PIStatus) error) (ProformaInvoice, error) {
	var (
		result ProformaInvoice
		from   PIStatus
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pi, err := tx.LockPI(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		from = pi.Status
		if err := apply(&pi, pi.EffectiveStatus(s.now())); err != nil {
			return err
		}
		pi.UpdatedAt = s.now()
		if err := tx.UpdatePI(ctx, pi); err != nil {
			return err
		}
		result = pi
		return nil
	})
	if err != nil {
		return ProformaInvoice{}, err
	}
	s.afterCommit(ctx, actor, transition{document: docPI, id: result.ID, from: string(from), to: string(result.Status), meta: map[string]any{"number": result.Number}})
	return result, nil
}

// advancePI applies a side-effect transition inside an open transaction. The
// PI is left untouched when the move is not legal from its current status.
func (s *Service) advancePI(ctx context.Context, tx TxRepository, sellerID, id int64, to PIStatus) (*transition, error) {
	pi, err := tx.LockPI(ctx, sellerID, id)
	if err != nil {
		if shared.KindOf(err) == shared.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	from := pi.EffectiveStatus(s.now())
	if !from.CanTransition(to) {
		s.logger.Warn("skip pi side effect", slog.Int64("pi_id", id), slog.String("from", string(from)), slog.String("to", string(to)))
		return nil, nil
	}
	pi.Status = to
	pi.UpdatedAt = s.now()
	if err := tx.UpdatePI(ctx, pi); err != nil {
		return nil, err
	}
	return &transition{document: docPI, id: pi.ID, from: string(from), to: string(to), meta: map[string]any{"number": pi.Number}}, nil
}
