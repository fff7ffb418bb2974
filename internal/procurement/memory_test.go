package procurement

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	pis      map[int64]ProformaInvoice
	pos      map[int64]PurchaseOrder
	invoices map[int64]Invoice
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		pis:      make(map[int64]ProformaInvoice),
		pos:      make(map[int64]PurchaseOrder),
		invoices: make(map[int64]Invoice),
	}
}

// WithTx restores the previous state when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pis, pos, invoices, nextID := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.pis, r.pos, r.invoices, r.nextID = pis, pos, invoices, nextID
		return err
	}
	return nil
}

func (r *memoryRepo) snapshot() (map[int64]ProformaInvoice, map[int64]PurchaseOrder, map[int64]Invoice, int64) {
	pis := make(map[int64]ProformaInvoice, len(r.pis))
	for id, pi := range r.pis {
		pis[id] = clonePI(pi)
	}
	pos := make(map[int64]PurchaseOrder, len(r.pos))
	for id, po := range r.pos {
		pos[id] = clonePO(po)
	}
	invoices := make(map[int64]Invoice, len(r.invoices))
	for id, inv := range r.invoices {
		invoices[id] = cloneInvoice(inv)
	}
	return pis, pos, invoices, r.nextID
}

func clonePI(pi ProformaInvoice) ProformaInvoice {
	pi.Items = append([]LineItem(nil), pi.Items...)
	return pi
}

func clonePO(po PurchaseOrder) PurchaseOrder {
	po.Items = append([]POItem(nil), po.Items...)
	return po
}

func cloneInvoice(inv Invoice) Invoice {
	inv.Items = append([]LineItem(nil), inv.Items...)
	inv.Payments = append([]PaymentRecord(nil), inv.Payments...)
	return inv
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

// seedPI stores pi as-is, bypassing service validation.
func (r *memoryRepo) seedPI(pi ProformaInvoice) ProformaInvoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	pi.ID = r.id()
	for i := range pi.Items {
		pi.Items[i].ID = r.id()
	}
	r.pis[pi.ID] = clonePI(pi)
	return pi
}

func (r *memoryRepo) seedPO(po PurchaseOrder) PurchaseOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	po.ID = r.id()
	for i := range po.Items {
		po.Items[i].ID = r.id()
	}
	r.pos[po.ID] = clonePO(po)
	return po
}

func (r *memoryRepo) storedPI(id int64) ProformaInvoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePI(r.pis[id])
}

func (r *memoryRepo) storedInvoice(id int64) Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneInvoice(r.invoices[id])
}

func visible(sellerID, owner int64, deletedAt *time.Time, opts ReadOptions) bool {
	return sellerID == owner && (deletedAt == nil || opts.IncludeDeleted)
}

func (r *memoryRepo) GetPI(ctx context.Context, sellerID, id int64, opts ReadOptions) (ProformaInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pi, ok := r.pis[id]
	if !ok || !visible(sellerID, pi.SellerID, pi.DeletedAt, opts) {
		return ProformaInvoice{}, ErrPINotFound
	}
	return clonePI(pi), nil
}

func (r *memoryRepo) GetPO(ctx context.Context, sellerID, id int64, opts ReadOptions) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.pos[id]
	if !ok || !visible(sellerID, po.SellerID, po.DeletedAt, opts) {
		return PurchaseOrder{}, ErrPONotFound
	}
	return clonePO(po), nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, sellerID, id int64, opts ReadOptions) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || !visible(sellerID, inv.SellerID, inv.DeletedAt, opts) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *memoryRepo) ListExpiredPIs(ctx context.Context, now time.Time, limit int) ([]ProformaInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProformaInvoice
	for _, pi := range r.pis {
		if pi.DeletedAt == nil && pi.Status == PIStatusSent && pi.ValidUntil.Before(now) && len(out) < limit {
			out = append(out, clonePI(pi))
		}
	}
	return out, nil
}

func (r *memoryRepo) ListOverdueInvoices(ctx context.Context, now time.Time, limit int) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.DeletedAt == nil && contains(invoiceAgeable, inv.Status) && inv.DueDate.Before(now) && len(out) < limit {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (tx *memoryTx) LockPI(ctx context.Context, sellerID, id int64) (ProformaInvoice, error) {
	pi, ok := tx.repo.pis[id]
	if !ok || !visible(sellerID, pi.SellerID, pi.DeletedAt, ReadOptions{}) {
		return ProformaInvoice{}, ErrPINotFound
	}
	return clonePI(pi), nil
}

func (tx *memoryTx) CreatePI(ctx context.Context, pi ProformaInvoice) (ProformaInvoice, error) {
	for _, existing := range tx.repo.pis {
		if existing.Number == pi.Number {
			return ProformaInvoice{}, ErrNumberCollision
		}
	}
	pi.ID = tx.repo.id()
	pi.UpdatedAt = pi.CreatedAt
	for i := range pi.Items {
		pi.Items[i].ID = tx.repo.id()
	}
	tx.repo.pis[pi.ID] = clonePI(pi)
	return pi, nil
}

func (tx *memoryTx) UpdatePI(ctx context.Context, pi ProformaInvoice) error {
	stored, ok := tx.repo.pis[pi.ID]
	if !ok {
		return ErrPINotFound
	}
	items := stored.Items
	pi.Items = items
	tx.repo.pis[pi.ID] = clonePI(pi)
	return nil
}

func (tx *memoryTx) ReplacePIItems(ctx context.Context, piID int64, items []LineItem) ([]LineItem, error) {
	pi := tx.repo.pis[piID]
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		item.ID = tx.repo.id()
		out = append(out, item)
	}
	pi.Items = out
	tx.repo.pis[piID] = pi
	return append([]LineItem(nil), out...), nil
}

func (tx *memoryTx) LockPO(ctx context.Context, sellerID, id int64) (PurchaseOrder, error) {
	po, ok := tx.repo.pos[id]
	if !ok || !visible(sellerID, po.SellerID, po.DeletedAt, ReadOptions{}) {
		return PurchaseOrder{}, ErrPONotFound
	}
	return clonePO(po), nil
}

func (tx *memoryTx) CreatePO(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	for _, existing := range tx.repo.pos {
		if existing.Number == po.Number {
			return PurchaseOrder{}, ErrNumberCollision
		}
	}
	po.ID = tx.repo.id()
	po.UpdatedAt = po.CreatedAt
	for i := range po.Items {
		po.Items[i].ID = tx.repo.id()
	}
	tx.repo.pos[po.ID] = clonePO(po)
	return po, nil
}

func (tx *memoryTx) UpdatePO(ctx context.Context, po PurchaseOrder) error {
	stored, ok := tx.repo.pos[po.ID]
	if !ok {
		return ErrPONotFound
	}
	po.Items = stored.Items
	tx.repo.pos[po.ID] = clonePO(po)
	return nil
}

func (tx *memoryTx) UpdatePOItem(ctx context.Context, item POItem) error {
	for id, po := range tx.repo.pos {
		for i := range po.Items {
			if po.Items[i].ID == item.ID {
				po = clonePO(po)
				po.Items[i] = item
				tx.repo.pos[id] = po
				return nil
			}
		}
	}
	return shared.NotFound("PO item not found")
}

func (tx *memoryTx) ActiveInvoiceExists(ctx context.Context, poID int64) (bool, error) {
	for _, inv := range tx.repo.invoices {
		if inv.POID != nil && *inv.POID == poID && inv.DeletedAt == nil && inv.Status != InvoiceStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) LockInvoice(ctx context.Context, sellerID, id int64) (Invoice, error) {
	inv, ok := tx.repo.invoices[id]
	if !ok || !visible(sellerID, inv.SellerID, inv.DeletedAt, ReadOptions{}) {
		return Invoice{}, ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (tx *memoryTx) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	for _, existing := range tx.repo.invoices {
		if existing.Number == inv.Number {
			return Invoice{}, ErrNumberCollision
		}
		if inv.POID != nil && existing.POID != nil && *existing.POID == *inv.POID && existing.DeletedAt == nil &&
			existing.Status != InvoiceStatusCancelled {
			return Invoice{}, ErrInvoiceRace
		}
	}
	inv.ID = tx.repo.id()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.Items {
		inv.Items[i].ID = tx.repo.id()
	}
	tx.repo.invoices[inv.ID] = cloneInvoice(inv)
	return inv, nil
}

func (tx *memoryTx) UpdateInvoice(ctx context.Context, inv Invoice) error {
	stored, ok := tx.repo.invoices[inv.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Items = stored.Items
	inv.Payments = stored.Payments
	tx.repo.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (tx *memoryTx) InsertPayment(ctx context.Context, payment PaymentRecord) (PaymentRecord, error) {
	inv, ok := tx.repo.invoices[payment.InvoiceID]
	if !ok {
		return PaymentRecord{}, ErrInvoiceNotFound
	}
	payment.ID = tx.repo.id()
	inv = cloneInvoice(inv)
	inv.Payments = append(inv.Payments, payment)
	tx.repo.invoices[inv.ID] = inv
	return payment, nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, sellerID int64, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]struct{})
	}
	k := module + "|" + key
	if _, ok := m.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, sellerID int64, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+"|"+key)
	return nil
}

type countingCache struct {
	mu    sync.Mutex
	bumps map[int64]int
}

func (c *countingCache) Bump(ctx context.Context, sellerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bumps == nil {
		c.bumps = make(map[int64]int)
	}
	c.bumps[sellerID]++
	return nil
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return fn(ctx)
}
