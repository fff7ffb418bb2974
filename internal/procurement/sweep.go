package procurement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// DefaultSweepBatch bounds the rows handled per sweep run.
const DefaultSweepBatch = 500

var errAlreadySettled = errors.New("procurement: nothing to persist")

// SweepResult counts documents whose derived status was persisted.
type SweepResult struct {
	ExpiredPIs      int `json:"expiredPis"`
	OverdueInvoices int `json:"overdueInvoices"`
}

// Sweep persists EXPIRED for lapsed SENT PIs and OVERDUE for open invoices
// past due. Reads already report both states, so a failed sweep only delays
// the stored status.
func (s *Service) Sweep(ctx context.Context, batch int) (SweepResult, error) {
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	var result SweepResult
	now := s.now()

	pis, err := s.repo.ListExpiredPIs(ctx, now, batch)
	if err != nil {
		return result, err
	}
	for _, pi := range pis {
		actor := shared.Actor{SellerID: pi.SellerID}
		_, err := s.transitionPI(ctx, actor, pi.ID, func(locked *ProformaInvoice, current PIStatus) error {
			if locked.Status != PIStatusSent || current != PIStatusExpired {
				return errAlreadySettled
			}
			locked.Status = PIStatusExpired
			return nil
		})
		switch {
		case err == nil:
			result.ExpiredPIs++
		case errors.Is(err, errAlreadySettled), shared.KindOf(err) == shared.ErrNotFound:
		default:
			return result, err
		}
	}

	invoices, err := s.repo.ListOverdueInvoices(ctx, now, batch)
	if err != nil {
		return result, err
	}
	for _, inv := range invoices {
		actor := shared.Actor{SellerID: inv.SellerID}
		_, err := s.transitionInvoice(ctx, actor, inv.ID, func(ctx context.Context, tx TxRepository, locked *Invoice, current InvoiceStatus) ([]transition, error) {
			if locked.Status == InvoiceStatusOverdue || current != InvoiceStatusOverdue {
				return nil, errAlreadySettled
			}
			locked.Status = InvoiceStatusOverdue
			return nil, nil
		})
		switch {
		case err == nil:
			result.OverdueInvoices++
		case errors.Is(err, errAlreadySettled), shared.KindOf(err) == shared.ErrNotFound:
		default:
			return result, err
		}
	}

	s.logger.Info("procurement sweep", slog.Int("expired_pis", result.ExpiredPIs), slog.Int("overdue_invoices", result.OverdueInvoices))
	return result, nil
}
