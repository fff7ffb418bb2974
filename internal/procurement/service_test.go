package procurement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

var (
	sellerA = shared.Actor{UserID: 1, SellerID: 10}
	sellerB = shared.Actor{UserID: 2, SellerID: 20}
)

type fixture struct {
	repo   *memoryRepo
	svc    *Service
	audit  *memoryAudit
	cache  *countingCache
	locker *recordingLocker
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newMemoryRepo(),
		audit:  &memoryAudit{},
		cache:  &countingCache{},
		locker: &recordingLocker{},
		now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	gen := numbering.NewGenerator(numbering.NewMemorySequencer()).WithClock(clock)
	f.svc = NewService(f.repo, gen, f.locker, f.audit, &memoryIdempotency{}).
		WithCache(f.cache).
		WithClock(clock)
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func sampleItems() []ItemRequest {
	return []ItemRequest{
		{ProductID: 101, Description: "Cotton tee", Quantity: 2, UnitPrice: d("100")},
		{ProductID: 102, Description: "Canvas bag", Quantity: 1, UnitPrice: d("50")},
	}
}

func (f *fixture) createPI(t *testing.T, actor shared.Actor) ProformaInvoice {
	t.Helper()
	pi, err := f.svc.CreatePI(context.Background(), actor, "", CreatePIRequest{
		ValidUntil:  f.now.AddDate(0, 0, 14),
		CreditTerms: CreditNet60,
		TaxRate:     dp("18"),
		Items:       sampleItems(),
	})
	require.NoError(t, err)
	return pi
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	if msg != "" {
		require.Equal(t, msg, shared.UserMessage(err))
	}
}

func TestCreatePIComputesTotals(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)

	require.Equal(t, "PI-2026-00001", pi.Number)
	require.Equal(t, PIStatusDraft, pi.Status)
	require.Equal(t, "250.00", pi.Subtotal.StringFixed(2))
	require.Equal(t, "45.00", pi.TaxAmount.StringFixed(2))
	require.Equal(t, "295.00", pi.Total.StringFixed(2))
	require.Len(t, pi.Items, 2)
	require.Equal(t, "200.00", pi.Items[0].TotalPrice.StringFixed(2))
	require.Equal(t, 1, f.cache.bumps[sellerA.SellerID])
	require.Equal(t, []string{"PI_DRAFT"}, f.audit.actions())

	second := f.createPI(t, sellerA)
	require.Equal(t, "PI-2026-00002", second.Number)
}

func TestCreatePIValidation(t *testing.T) {
	f := newFixture(t)
	base := func() CreatePIRequest {
		return CreatePIRequest{ValidUntil: f.now.AddDate(0, 0, 7), CreditTerms: CreditNet30, Items: sampleItems()}
	}

	req := base()
	req.Items = nil
	_, err := f.svc.CreatePI(context.Background(), sellerA, "", req)
	requireKind(t, err, shared.ErrBadRequest, "PI must have at least one item")

	req = base()
	req.TaxRate = dp("100.01")
	_, err = f.svc.CreatePI(context.Background(), sellerA, "", req)
	requireKind(t, err, shared.ErrBadRequest, "Tax rate must be between 0 and 100")

	req = base()
	req.Discount = dp("250.01")
	_, err = f.svc.CreatePI(context.Background(), sellerA, "", req)
	requireKind(t, err, shared.ErrBadRequest, "Discount must be between 0 and the subtotal")

	req = base()
	req.Items[1].UnitPrice = d("-1")
	_, err = f.svc.CreatePI(context.Background(), sellerA, "", req)
	requireKind(t, err, shared.ErrBadRequest, "Item unit price cannot be negative")

	req = base()
	req.Items[0].Quantity = 0
	_, err = f.svc.CreatePI(context.Background(), sellerA, "", req)
	requireKind(t, err, shared.ErrBadRequest, "Item quantity must be at least 1")

	req = base()
	req.Discount = dp("250")
	pi, err := f.svc.CreatePI(context.Background(), sellerA, "", req)
	require.NoError(t, err)
	require.True(t, pi.Total.IsZero())
}

func TestSendPIWithoutItemsFails(t *testing.T) {
	f := newFixture(t)
	pi := f.repo.seedPI(ProformaInvoice{Number: "PI-2026-09999", SellerID: sellerA.SellerID, Status: PIStatusDraft, ValidUntil: f.now.AddDate(0, 1, 0)})

	_, err := f.svc.SendPI(context.Background(), sellerA, pi.ID)
	requireKind(t, err, shared.ErrBadRequest, "PI must have at least one item")
	require.Equal(t, PIStatusDraft, f.repo.storedPI(pi.ID).Status)
}

func TestPITransitionLegality(t *testing.T) {
	actions := map[string]func(f *fixture, id int64) error{
		"send": func(f *fixture, id int64) error {
			_, err := f.svc.SendPI(context.Background(), sellerA, id)
			return err
		},
		"cancel": func(f *fixture, id int64) error {
			_, err := f.svc.CancelPI(context.Background(), sellerA, id)
			return err
		},
		"reopen": func(f *fixture, id int64) error {
			_, err := f.svc.ReopenPI(context.Background(), sellerA, id)
			return err
		},
		"delete": func(f *fixture, id int64) error {
			return f.svc.DeletePI(context.Background(), sellerA, id)
		},
		"update": func(f *fixture, id int64) error {
			notes := "edited"
			_, err := f.svc.UpdatePI(context.Background(), sellerA, id, UpdatePIRequest{Notes: &notes})
			return err
		},
	}
	allowed := map[string][]PIStatus{
		"send":   {PIStatusDraft},
		"cancel": {PIStatusDraft, PIStatusSent},
		"reopen": {PIStatusRevisionRequested},
		"delete": {PIStatusDraft, PIStatusCancelled},
		"update": {PIStatusDraft},
	}

	for name, action := range actions {
		for _, status := range AllPIStatuses {
			t.Run(fmt.Sprintf("%s from %s", name, status), func(t *testing.T) {
				f := newFixture(t)
				validUntil := f.now.AddDate(0, 0, 7)
				if status == PIStatusExpired {
					validUntil = f.now.AddDate(0, 0, -1)
				}
				pi := f.repo.seedPI(ProformaInvoice{
					Number:     "PI-2026-00042",
					SellerID:   sellerA.SellerID,
					Status:     status,
					ValidUntil: validUntil,
					Items:      []LineItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10"), TotalPrice: d("10")}},
				})

				err := action(f, pi.ID)
				if contains(allowed[name], status) {
					require.NoError(t, err)
					return
				}
				requireKind(t, err, shared.ErrBadRequest, "")
				require.Equal(t, status, f.repo.storedPI(pi.ID).Status)
				require.Nil(t, f.repo.storedPI(pi.ID).DeletedAt)
			})
		}
	}
}

func TestUpdatePIReplacesItemsAndRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)

	items := []ItemRequest{{ProductID: 103, Quantity: 4, UnitPrice: d("25.50")}}
	updated, err := f.svc.UpdatePI(context.Background(), sellerA, pi.ID, UpdatePIRequest{Items: &items, Discount: dp("2")})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, "102.00", updated.Subtotal.StringFixed(2))
	require.Equal(t, "18.00", updated.TaxAmount.StringFixed(2))
	require.Equal(t, "118.00", updated.Total.StringFixed(2))

	stored := f.repo.storedPI(pi.ID)
	require.Len(t, stored.Items, 1)
	require.Equal(t, int64(103), stored.Items[0].ProductID)

	terms := CreditImmediate
	updated, err = f.svc.UpdatePI(context.Background(), sellerA, pi.ID, UpdatePIRequest{CreditTerms: &terms})
	require.NoError(t, err)
	require.Equal(t, CreditImmediate, updated.CreditTerms)
	require.Equal(t, "118.00", updated.Total.StringFixed(2))
}

func TestUpdatePIIsAtomic(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)

	items := []ItemRequest{{ProductID: 103, Quantity: 1, UnitPrice: d("5")}}
	_, err := f.svc.UpdatePI(context.Background(), sellerA, pi.ID, UpdatePIRequest{Items: &items, Discount: dp("10")})
	requireKind(t, err, shared.ErrBadRequest, "Discount must be between 0 and the subtotal")

	stored := f.repo.storedPI(pi.ID)
	require.Len(t, stored.Items, 2)
	require.Equal(t, "295.00", stored.Total.StringFixed(2))
}

func TestDeletedPIIsHidden(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)
	require.NoError(t, f.svc.DeletePI(context.Background(), sellerA, pi.ID))

	_, err := f.svc.GetPI(context.Background(), sellerA, pi.ID)
	requireKind(t, err, shared.ErrNotFound, "Proforma invoice not found")
	_, err = f.svc.SendPI(context.Background(), sellerA, pi.ID)
	requireKind(t, err, shared.ErrNotFound, "")

	withDeleted, err := f.repo.GetPI(context.Background(), sellerA.SellerID, pi.ID, ReadOptions{IncludeDeleted: true})
	require.NoError(t, err)
	require.NotNil(t, withDeleted.DeletedAt)
}

func TestExpiredPIIsDerivedAndSwept(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)
	_, err := f.svc.SendPI(context.Background(), sellerA, pi.ID)
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 15)
	got, err := f.svc.GetPI(context.Background(), sellerA, pi.ID)
	require.NoError(t, err)
	require.Equal(t, PIStatusExpired, got.Status)
	require.Equal(t, PIStatusSent, f.repo.storedPI(pi.ID).Status)

	_, err = f.svc.CancelPI(context.Background(), sellerA, pi.ID)
	requireKind(t, err, shared.ErrBadRequest, "Can only cancel PI in DRAFT or SENT status")

	res, err := f.svc.Sweep(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.ExpiredPIs)
	require.Equal(t, PIStatusExpired, f.repo.storedPI(pi.ID).Status)

	res, err = f.svc.Sweep(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, res.ExpiredPIs)
}

func TestReviewPI(t *testing.T) {
	f := newFixture(t)
	pi := f.createPI(t, sellerA)

	_, err := f.svc.ReviewPI(context.Background(), ReviewPIRequest{SellerID: sellerA.SellerID, PIID: pi.ID, Decision: ReviewApprove})
	requireKind(t, err, shared.ErrBadRequest, "Cannot transition from DRAFT to APPROVED")

	_, err = f.svc.SendPI(context.Background(), sellerA, pi.ID)
	require.NoError(t, err)

	buyer := int64(77)
	got, err := f.svc.ReviewPI(context.Background(), ReviewPIRequest{SellerID: sellerA.SellerID, PIID: pi.ID, BuyerID: &buyer, Decision: ReviewRequestRevision})
	require.NoError(t, err)
	require.Equal(t, PIStatusRevisionRequested, got.Status)

	reopened, err := f.svc.ReopenPI(context.Background(), sellerA, pi.ID)
	require.NoError(t, err)
	require.Equal(t, PIStatusDraft, reopened.Status)
	require.Nil(t, reopened.SentAt)

	other := int64(78)
	_, err = f.svc.SendPI(context.Background(), sellerA, pi.ID)
	require.NoError(t, err)
	_, err = f.svc.ReviewPI(context.Background(), ReviewPIRequest{SellerID: sellerA.SellerID, PIID: pi.ID, BuyerID: &other, Decision: ReviewApprove})
	requireKind(t, err, shared.ErrNotFound, "")
	_, err = f.svc.ReviewPI(context.Background(), ReviewPIRequest{SellerID: sellerB.SellerID, PIID: pi.ID, Decision: ReviewApprove})
	requireKind(t, err, shared.ErrNotFound, "")
}

func TestPOUpdateStatusRejectsIllegalPair(t *testing.T) {
	f := newFixture(t)
	po, err := f.svc.IntakePO(context.Background(), IntakePORequest{SellerID: sellerA.SellerID, Items: sampleItems()})
	require.NoError(t, err)
	require.Equal(t, POStatusPending, po.Status)
	require.Equal(t, "PO-2026-00001", po.Number)

	_, err = f.svc.UpdatePOStatus(context.Background(), sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusDelivered})
	requireKind(t, err, shared.ErrBadRequest, "Cannot transition from PENDING to DELIVERED")

	stored, err := f.svc.GetPO(context.Background(), sellerA, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusPending, stored.Status)
	require.Nil(t, stored.DeliveredAt)
}

func TestPOStatusAllowList(t *testing.T) {
	statuses := []POStatus{POStatusPending, POStatusAcknowledged, POStatusInProgress, POStatusShipped, POStatusDelivered, POStatusCancelled}
	targets := []POStatus{POStatusInProgress, POStatusShipped, POStatusDelivered}
	legal := map[POStatus][]POStatus{
		POStatusAcknowledged: {POStatusInProgress, POStatusShipped},
		POStatusInProgress:   {POStatusShipped},
		POStatusShipped:      {POStatusDelivered},
	}
	for _, from := range statuses {
		for _, to := range targets {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				f := newFixture(t)
				po := f.repo.seedPO(PurchaseOrder{Number: "PO-2026-00042", SellerID: sellerA.SellerID, Status: from})
				updated, err := f.svc.UpdatePOStatus(context.Background(), sellerA, po.ID, UpdatePOStatusRequest{Status: to})
				if contains(legal[from], to) {
					require.NoError(t, err)
					require.Equal(t, to, updated.Status)
					return
				}
				requireKind(t, err, shared.ErrBadRequest, fmt.Sprintf("Cannot transition from %s to %s", from, to))
			})
		}
	}
}

func TestPOTimestampsAreSetOnce(t *testing.T) {
	f := newFixture(t)
	po := f.repo.seedPO(PurchaseOrder{Number: "PO-2026-00042", SellerID: sellerA.SellerID, Status: POStatusPending})

	acked, err := f.svc.AcknowledgePO(context.Background(), sellerA, po.ID, AcknowledgePORequest{})
	require.NoError(t, err)
	require.Equal(t, f.now, *acked.AcknowledgedAt)

	_, err = f.svc.AcknowledgePO(context.Background(), sellerA, po.ID, AcknowledgePORequest{})
	requireKind(t, err, shared.ErrBadRequest, "Can only acknowledge PO in PENDING status")

	shippedAt := f.now.Add(time.Hour)
	f.now = shippedAt
	tracking := "TRK-1"
	shipped, err := f.svc.UpdatePOStatus(context.Background(), sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusShipped, TrackingNumber: &tracking})
	require.NoError(t, err)
	require.Equal(t, shippedAt, *shipped.ShippedAt)
	require.Equal(t, "TRK-1", shipped.TrackingNumber)

	f.now = f.now.Add(24 * time.Hour)
	delivered, err := f.svc.UpdatePOStatus(context.Background(), sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusDelivered})
	require.NoError(t, err)
	require.Equal(t, shippedAt, *delivered.ShippedAt)
	require.Equal(t, f.now, *delivered.DeliveredAt)

	_, err = f.svc.CancelPO(context.Background(), sellerA, po.ID, CancelPORequest{})
	requireKind(t, err, shared.ErrBadRequest, "Can only cancel PO before delivery")
}

func TestUpdateItemQuantities(t *testing.T) {
	f := newFixture(t)
	po, err := f.svc.IntakePO(context.Background(), IntakePORequest{SellerID: sellerA.SellerID, Items: sampleItems()})
	require.NoError(t, err)
	itemID := po.Items[0].ID
	received := int64(1)

	updated, err := f.svc.UpdateItemQuantities(context.Background(), sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: itemID, QuantityShipped: 2, QuantityReceived: &received}},
	})
	require.NoError(t, err)
	item, ok := updated.Item(itemID)
	require.True(t, ok)
	require.Equal(t, int64(2), item.QuantityShipped)
	require.Equal(t, int64(1), item.QuantityReceived)

	_, err = f.svc.UpdateItemQuantities(context.Background(), sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: itemID, QuantityShipped: 3}},
	})
	requireKind(t, err, shared.ErrBadRequest, "Shipped quantity must be between 0 and the ordered quantity")

	tooMany := int64(5)
	_, err = f.svc.UpdateItemQuantities(context.Background(), sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: itemID, QuantityShipped: 1, QuantityReceived: &tooMany}},
	})
	requireKind(t, err, shared.ErrBadRequest, "Received quantity must be between 0 and the ordered quantity")

	_, err = f.svc.UpdateItemQuantities(context.Background(), sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: 999999, QuantityShipped: 1}},
	})
	requireKind(t, err, shared.ErrBadRequest, "Item 999999 does not belong to this PO")

	stored, err := f.svc.GetPO(context.Background(), sellerA, po.ID)
	require.NoError(t, err)
	item, _ = stored.Item(itemID)
	require.Equal(t, int64(2), item.QuantityShipped)

	_, err = f.svc.CancelPO(context.Background(), sellerA, po.ID, CancelPORequest{Reason: "buyer withdrew"})
	require.NoError(t, err)
	_, err = f.svc.UpdateItemQuantities(context.Background(), sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: itemID, QuantityShipped: 0}},
	})
	requireKind(t, err, shared.ErrBadRequest, "Cannot update items of a cancelled PO")
}

func TestProcurementLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pi := f.createPI(t, sellerA)
	_, err := f.svc.SendPI(ctx, sellerA, pi.ID)
	require.NoError(t, err)

	_, err = f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerA.SellerID, PIID: &pi.ID})
	requireKind(t, err, shared.ErrBadRequest, "Purchase order requires an APPROVED proforma invoice")

	_, err = f.svc.ReviewPI(ctx, ReviewPIRequest{SellerID: sellerA.SellerID, PIID: pi.ID, Decision: ReviewStart})
	require.NoError(t, err)
	_, err = f.svc.ReviewPI(ctx, ReviewPIRequest{SellerID: sellerA.SellerID, PIID: pi.ID, Decision: ReviewApprove})
	require.NoError(t, err)

	po, err := f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerA.SellerID, PIID: &pi.ID})
	require.NoError(t, err)
	require.Equal(t, "295.00", po.Total.StringFixed(2))
	require.Len(t, po.Items, 2)
	require.Equal(t, PIStatusPOGenerated, f.repo.storedPI(pi.ID).Status)

	_, err = f.svc.AcknowledgePO(ctx, sellerA, po.ID, AcknowledgePORequest{})
	require.NoError(t, err)
	_, err = f.svc.UpdatePOStatus(ctx, sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusInProgress})
	require.NoError(t, err)

	_, err = f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	requireKind(t, err, shared.ErrBadRequest, "Can only generate invoice for a DELIVERED PO")

	_, err = f.svc.UpdatePOStatus(ctx, sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusShipped})
	require.NoError(t, err)
	_, err = f.svc.UpdatePOStatus(ctx, sellerA, po.ID, UpdatePOStatusRequest{Status: POStatusDelivered})
	require.NoError(t, err)
	require.Equal(t, PIStatusFulfilled, f.repo.storedPI(pi.ID).Status)

	received := int64(1)
	_, err = f.svc.UpdateItemQuantities(ctx, sellerA, po.ID, UpdateItemQuantitiesRequest{
		Items: []ItemQuantityRequest{{ItemID: po.Items[0].ID, QuantityShipped: 2, QuantityReceived: &received}},
	})
	require.NoError(t, err)

	inv, err := f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	require.Equal(t, "INV-2026-00001", inv.Number)
	require.Equal(t, InvoiceStatusDraft, inv.Status)
	require.Equal(t, f.now.AddDate(0, 0, 60), inv.DueDate)
	require.Equal(t, "295.00", inv.Total.StringFixed(2))
	require.Equal(t, "295.00", inv.BalanceAmount.StringFixed(2))
	require.True(t, inv.TaxRate.Equal(d("18")))
	require.Equal(t, int64(1), inv.Items[0].Quantity)
	require.Equal(t, "100.00", inv.Items[0].TotalPrice.StringFixed(2))
	require.Equal(t, int64(1), inv.Items[1].Quantity)
	require.Equal(t, PIStatusBilled, f.repo.storedPI(pi.ID).Status)
	require.Contains(t, f.locker.keys, shared.InvoiceGenerationLockKey(po.ID))

	_, err = f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	requireKind(t, err, shared.ErrBadRequest, "Invoice already exists for this PO")

	_, err = f.svc.RecordPayment(ctx, sellerA, "", inv.ID, RecordPaymentRequest{Amount: d("100"), Method: "BANK"})
	requireKind(t, err, shared.ErrBadRequest, "Payments can only be recorded on sent or overdue invoices")

	_, err = f.svc.SendInvoice(ctx, sellerA, inv.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, sellerA, "", inv.ID, RecordPaymentRequest{Amount: d("300"), Method: "BANK"})
	requireKind(t, err, shared.ErrBadRequest, "Payment amount must be greater than 0 and not exceed the balance")

	partial, err := f.svc.RecordPayment(ctx, sellerA, "pay-1", inv.ID, RecordPaymentRequest{Amount: d("95"), Method: "BANK"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPartiallyPaid, partial.Status)
	require.Equal(t, "200.00", partial.BalanceAmount.StringFixed(2))

	_, err = f.svc.RecordPayment(ctx, sellerA, "pay-1", inv.ID, RecordPaymentRequest{Amount: d("95"), Method: "BANK"})
	requireKind(t, err, shared.ErrConflict, "This request has already been processed")

	paid, err := f.svc.RecordPayment(ctx, sellerA, "pay-2", inv.ID, RecordPaymentRequest{Amount: d("200"), Method: "UPI", Reference: "UTR123"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, paid.Status)
	require.True(t, paid.BalanceAmount.IsZero())
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, PIStatusPaid, f.repo.storedPI(pi.ID).Status)

	stored := f.repo.storedInvoice(inv.ID)
	require.Len(t, stored.Payments, 2)
	require.True(t, stored.Total.Sub(stored.PaidAmount).Equal(stored.BalanceAmount))

	_, err = f.svc.MarkUnpaid(ctx, sellerA, inv.ID)
	requireKind(t, err, shared.ErrBadRequest, "Cannot mark a paid or cancelled invoice as unpaid")
	require.Contains(t, f.audit.actions(), "PI_PAID")
}

func TestGenerateInvoiceWithoutPIUsesDefaults(t *testing.T) {
	f := newFixture(t)
	po := f.repo.seedPO(PurchaseOrder{
		Number:   "PO-2026-00042",
		SellerID: sellerA.SellerID,
		Status:   POStatusDelivered,
		Amounts:  Amounts{TaxRate: d("5"), Subtotal: d("100"), TaxAmount: d("5"), Total: d("105"), Discount: decimal.Zero},
		Items:    []POItem{{LineItem: LineItem{ProductID: 1, Quantity: 4, UnitPrice: d("25"), TotalPrice: d("100")}}},
	})

	inv, err := f.svc.GenerateInvoice(context.Background(), sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	require.Equal(t, f.now.AddDate(0, 0, 30), inv.DueDate)
	require.True(t, inv.TaxRate.Equal(d("18")))
	require.Equal(t, "105.00", inv.Total.StringFixed(2))
	require.Equal(t, int64(4), inv.Items[0].Quantity)
	require.Nil(t, inv.PIID)
}

func TestInvoiceCreateRaceSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	po := f.repo.seedPO(PurchaseOrder{Number: "PO-2026-00042", SellerID: sellerA.SellerID, Status: POStatusDelivered})
	err := f.repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := tx.CreateInvoice(ctx, Invoice{Number: "INV-2026-00001", POID: &po.ID, SellerID: sellerA.SellerID})
		return err
	})
	require.NoError(t, err)

	err = f.repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := tx.CreateInvoice(ctx, Invoice{Number: "INV-2026-00002", POID: &po.ID, SellerID: sellerA.SellerID})
		return err
	})
	requireKind(t, err, shared.ErrConflict, "Invoice already exists for this PO")
}

func TestCancelledInvoiceAllowsRegeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.repo.seedPO(PurchaseOrder{
		Number:   "PO-2026-00042",
		SellerID: sellerA.SellerID,
		Status:   POStatusDelivered,
		Amounts:  Amounts{Subtotal: d("100"), Total: d("100")},
		Items:    []POItem{{LineItem: LineItem{ProductID: 1, Quantity: 1, UnitPrice: d("100"), TotalPrice: d("100")}}},
	})

	first, err := f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	_, err = f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	requireKind(t, err, shared.ErrBadRequest, "Invoice already exists for this PO")

	cancelled, err := f.svc.CancelInvoice(ctx, sellerA, first.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusCancelled, cancelled.Status)

	second, err := f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, "INV-2026-00002", second.Number)
	require.Equal(t, InvoiceStatusDraft, second.Status)

	_, err = f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	requireKind(t, err, shared.ErrBadRequest, "Invoice already exists for this PO")
}

func TestRecordPaymentValidatesRoundedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.repo.seedPO(PurchaseOrder{
		Number:   "PO-2026-00042",
		SellerID: sellerA.SellerID,
		Status:   POStatusDelivered,
		Amounts:  Amounts{Subtotal: d("100"), Total: d("100")},
		Items:    []POItem{{LineItem: LineItem{ProductID: 1, Quantity: 1, UnitPrice: d("100"), TotalPrice: d("100")}}},
	})
	inv, err := f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	_, err = f.svc.SendInvoice(ctx, sellerA, inv.ID)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, sellerA, "", inv.ID, RecordPaymentRequest{Amount: d("0.004"), Method: "BANK"})
	requireKind(t, err, shared.ErrBadRequest, "Payment amount must be greater than 0 and not exceed the balance")
	stored := f.repo.storedInvoice(inv.ID)
	require.Empty(t, stored.Payments)
	require.Equal(t, InvoiceStatusSent, stored.Status)

	paid, err := f.svc.RecordPayment(ctx, sellerA, "", inv.ID, RecordPaymentRequest{Amount: d("100.004"), Method: "BANK"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, paid.Status)
	require.Equal(t, "100.00", paid.PaidAmount.StringFixed(2))
	require.True(t, paid.BalanceAmount.IsZero())
}

type ownedCatalog struct {
	products map[int64]int64
	variants map[int64]int64
}

func (c ownedCatalog) EnsureProduct(_ context.Context, actor shared.Actor, productID int64) error {
	if c.products[productID] != actor.SellerID {
		return shared.NotFound("Product not found")
	}
	return nil
}

func (c ownedCatalog) EnsureVariant(_ context.Context, actor shared.Actor, variantID int64) error {
	if c.variants[variantID] != actor.SellerID {
		return shared.NotFound("Product variant not found")
	}
	return nil
}

func TestItemsMustBelongToSellerCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.WithCatalog(ownedCatalog{
		products: map[int64]int64{101: sellerA.SellerID, 102: sellerA.SellerID, 201: sellerB.SellerID},
		variants: map[int64]int64{501: sellerA.SellerID, 601: sellerB.SellerID},
	})

	pi := f.createPI(t, sellerA)

	foreign := []ItemRequest{{ProductID: 201, Description: "Other seller", Quantity: 1, UnitPrice: d("10")}}
	_, err := f.svc.CreatePI(ctx, sellerA, "", CreatePIRequest{
		ValidUntil:  f.now.AddDate(0, 0, 14),
		CreditTerms: CreditNet30,
		Items:       foreign,
	})
	requireKind(t, err, shared.ErrNotFound, "Product not found")

	foreignVariant := int64(601)
	withVariant := []ItemRequest{{ProductID: 101, VariantID: &foreignVariant, Quantity: 1, UnitPrice: d("10")}}
	_, err = f.svc.UpdatePI(ctx, sellerA, pi.ID, UpdatePIRequest{Items: &withVariant})
	requireKind(t, err, shared.ErrNotFound, "Product variant not found")
	require.Len(t, f.repo.storedPI(pi.ID).Items, 2)

	ownVariant := int64(501)
	withVariant[0].VariantID = &ownVariant
	updated, err := f.svc.UpdatePI(ctx, sellerA, pi.ID, UpdatePIRequest{Items: &withVariant})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	_, err = f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerA.SellerID, Items: foreign})
	requireKind(t, err, shared.ErrNotFound, "Product not found")

	_, err = f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerB.SellerID, Items: foreign})
	require.NoError(t, err)
}

func TestOverdueInvoiceIsDerivedAndSwept(t *testing.T) {
	f := newFixture(t)
	po := f.repo.seedPO(PurchaseOrder{Number: "PO-2026-00042", SellerID: sellerA.SellerID, Status: POStatusDelivered, Amounts: Amounts{Total: d("500")}})
	inv, err := f.svc.GenerateInvoice(context.Background(), sellerA, GenerateInvoiceRequest{POID: po.ID})
	require.NoError(t, err)
	_, err = f.svc.SendInvoice(context.Background(), sellerA, inv.ID)
	require.NoError(t, err)
	viewed, err := f.svc.MarkInvoiceViewed(context.Background(), sellerA, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusViewed, viewed.Status)

	f.now = f.now.AddDate(0, 0, 31)
	got, err := f.svc.GetInvoice(context.Background(), sellerA, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusOverdue, got.Status)

	_, err = f.svc.CancelInvoice(context.Background(), sellerA, inv.ID)
	requireKind(t, err, shared.ErrBadRequest, "Can only cancel invoice in DRAFT, SENT or VIEWED status")

	res, err := f.svc.Sweep(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.OverdueInvoices)
	require.Equal(t, InvoiceStatusOverdue, f.repo.storedInvoice(inv.ID).Status)

	partial, err := f.svc.RecordPayment(context.Background(), sellerA, "", inv.ID, RecordPaymentRequest{Amount: d("100"), Method: "CASH"})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPartiallyPaid, partial.Status)
}

func TestMarkUnpaid(t *testing.T) {
	cases := map[InvoiceStatus]bool{
		InvoiceStatusDraft:         true,
		InvoiceStatusSent:          true,
		InvoiceStatusViewed:        true,
		InvoiceStatusPartiallyPaid: true,
		InvoiceStatusOverdue:       true,
		InvoiceStatusPaid:          false,
		InvoiceStatusCancelled:     false,
	}
	for status, ok := range cases {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			var id int64
			err := f.repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
				inv, err := tx.CreateInvoice(ctx, Invoice{Number: "INV-2026-00042", SellerID: sellerA.SellerID, Status: status, DueDate: f.now.AddDate(0, 0, 30)})
				id = inv.ID
				return err
			})
			require.NoError(t, err)

			inv, err := f.svc.MarkUnpaid(context.Background(), sellerA, id)
			if ok {
				require.NoError(t, err)
				require.Equal(t, InvoiceStatusOverdue, inv.Status)
				return
			}
			requireKind(t, err, shared.ErrBadRequest, "Cannot mark a paid or cancelled invoice as unpaid")
			require.Equal(t, status, f.repo.storedInvoice(id).Status)
		})
	}
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pi := f.createPI(t, sellerA)
	po, err := f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerA.SellerID, Items: sampleItems()})
	require.NoError(t, err)
	delivered := f.repo.seedPO(PurchaseOrder{Number: "PO-2026-00099", SellerID: sellerA.SellerID, Status: POStatusDelivered})
	inv, err := f.svc.GenerateInvoice(ctx, sellerA, GenerateInvoiceRequest{POID: delivered.ID})
	require.NoError(t, err)

	notes := "hijack"
	calls := map[string]func() error{
		"pi.get": func() error { _, err := f.svc.GetPI(ctx, sellerB, pi.ID); return err },
		"pi.update": func() error {
			_, err := f.svc.UpdatePI(ctx, sellerB, pi.ID, UpdatePIRequest{Notes: &notes})
			return err
		},
		"pi.send":   func() error { _, err := f.svc.SendPI(ctx, sellerB, pi.ID); return err },
		"pi.cancel": func() error { _, err := f.svc.CancelPI(ctx, sellerB, pi.ID); return err },
		"pi.delete": func() error { return f.svc.DeletePI(ctx, sellerB, pi.ID) },
		"po.get":    func() error { _, err := f.svc.GetPO(ctx, sellerB, po.ID); return err },
		"po.ack":    func() error { _, err := f.svc.AcknowledgePO(ctx, sellerB, po.ID, AcknowledgePORequest{}); return err },
		"po.status": func() error {
			_, err := f.svc.UpdatePOStatus(ctx, sellerB, po.ID, UpdatePOStatusRequest{Status: POStatusShipped})
			return err
		},
		"po.cancel": func() error { _, err := f.svc.CancelPO(ctx, sellerB, po.ID, CancelPORequest{}); return err },
		"inv.from_po": func() error {
			_, err := f.svc.GenerateInvoice(ctx, sellerB, GenerateInvoiceRequest{POID: delivered.ID})
			return err
		},
		"inv.get":    func() error { _, err := f.svc.GetInvoice(ctx, sellerB, inv.ID); return err },
		"inv.send":   func() error { _, err := f.svc.SendInvoice(ctx, sellerB, inv.ID); return err },
		"inv.unpaid": func() error { _, err := f.svc.MarkUnpaid(ctx, sellerB, inv.ID); return err },
		"inv.cancel": func() error { _, err := f.svc.CancelInvoice(ctx, sellerB, inv.ID); return err },
		"inv.pay": func() error {
			_, err := f.svc.RecordPayment(ctx, sellerB, "", inv.ID, RecordPaymentRequest{Amount: d("1"), Method: "CASH"})
			return err
		},
		"po.intake": func() error {
			_, err := f.svc.IntakePO(ctx, IntakePORequest{SellerID: sellerB.SellerID, PIID: &pi.ID})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			requireKind(t, call(), shared.ErrNotFound, "")
		})
	}
	require.Equal(t, PIStatusDraft, f.repo.storedPI(pi.ID).Status)
}

func TestCreatePIIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	req := CreatePIRequest{ValidUntil: f.now.AddDate(0, 0, 7), CreditTerms: CreditNet30, Items: sampleItems()}

	_, err := f.svc.CreatePI(context.Background(), sellerA, "key-1", req)
	require.NoError(t, err)
	_, err = f.svc.CreatePI(context.Background(), sellerA, "key-1", req)
	requireKind(t, err, shared.ErrConflict, "This request has already been processed")

	bad := req
	bad.TaxRate = dp("500")
	_, err = f.svc.CreatePI(context.Background(), sellerA, "key-2", bad)
	requireKind(t, err, shared.ErrBadRequest, "")
	_, err = f.svc.CreatePI(context.Background(), sellerA, "key-2", req)
	require.NoError(t, err)
}

type fixedSequencer struct{}

func (fixedSequencer) Next(ctx context.Context, docType numbering.DocType, year int) (int64, error) {
	return 1, nil
}

func TestNumberCollisionSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	f.svc.numbers = numbering.NewGenerator(fixedSequencer{}).WithClock(func() time.Time { return f.now })

	f.createPI(t, sellerA)
	_, err := f.svc.CreatePI(context.Background(), sellerA, "retry-me", CreatePIRequest{
		ValidUntil: f.now.AddDate(0, 0, 7), CreditTerms: CreditNet30, Items: sampleItems(),
	})
	requireKind(t, err, shared.ErrConflict, "Document number collision, please retry")
	require.Len(t, f.repo.pis, 1)
}

func TestConcurrentCreatePIsGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 64
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pi, err := f.svc.CreatePI(context.Background(), sellerA, "", CreatePIRequest{
				ValidUntil: f.now.AddDate(0, 0, 7), CreditTerms: CreditNet30, Items: sampleItems(),
			})
			if err != nil {
				t.Error(err)
				return
			}
			numbers <- pi.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]struct{}, n)
	for number := range numbers {
		_, dup := seen[number]
		require.False(t, dup, number)
		seen[number] = struct{}{}
	}
	require.Len(t, seen, n)
}

func TestEffectiveStatusHelpers(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	pi := ProformaInvoice{Status: PIStatusSent, ValidUntil: now.Add(-time.Second)}
	require.Equal(t, PIStatusExpired, pi.EffectiveStatus(now))
	pi.Status = PIStatusApproved
	require.Equal(t, PIStatusApproved, pi.EffectiveStatus(now))

	inv := Invoice{Status: InvoiceStatusPartiallyPaid, DueDate: now.Add(-time.Hour)}
	require.Equal(t, InvoiceStatusOverdue, inv.EffectiveStatus(now))
	inv.Status = InvoiceStatusDraft
	require.Equal(t, InvoiceStatusDraft, inv.EffectiveStatus(now))

	require.Equal(t, 0, CreditImmediate.Days())
	require.Equal(t, 30, CreditTerms("").Days())
	require.Equal(t, 90, CreditNet90.Days())
	require.True(t, errors.Is(errTransition(POStatusPending, POStatusDelivered), shared.ErrBadRequest))
}
