package procurement

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/totals"
)

// Locker serialises mutations of one document across replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// AuditPort records document transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, sellerID int64, key, module string) error
	Delete(ctx context.Context, sellerID int64, key, module string) error
}

// CacheBumper invalidates a seller's cached analytics.
type CacheBumper interface {
	Bump(ctx context.Context, sellerID int64) error
}

// CatalogPort checks that quoted products belong to the seller.
type CatalogPort interface {
	EnsureProduct(ctx context.Context, actor shared.Actor, productID int64) error
	EnsureVariant(ctx context.Context, actor shared.Actor, variantID int64) error
}

// TransitionRecorder counts document status transitions.
type TransitionRecorder interface {
	ObserveTransition(document, from, to string)
}

// Service orchestrates procurement flows.
type Service struct {
	repo        RepositoryPort
	numbers     *numbering.Generator
	locker      Locker
	audit       AuditPort
	idempotency IdempotencyPort
	cache       CacheBumper
	catalog     CatalogPort
	metrics     TransitionRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, numbers *numbering.Generator, locker Locker, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{
		repo:        repo,
		numbers:     numbers,
		locker:      locker,
		audit:       audit,
		idempotency: idem,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// WithCache registers the analytics cache bumped after every mutation.
func (s *Service) WithCache(cache CacheBumper) *Service {
	s.cache = cache
	return s
}

// WithCatalog enables ownership checks on every item of a PI or PO request.
func (s *Service) WithCatalog(catalog CatalogPort) *Service {
	s.catalog = catalog
	return s
}

// WithMetrics registers the transition counter.
func (s *Service) WithMetrics(metrics TransitionRecorder) *Service {
	s.metrics = metrics
	return s
}

// WithLogger overrides the logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, key, fn)
}

// claimKey reserves an idempotency key. The returned release func frees the key
// again and must be called when the request fails.
func (s *Service) claimKey(ctx context.Context, sellerID int64, key, module string) (func(), error) {
	if key == "" || s.idempotency == nil {
		return func() {}, nil
	}
	if err := s.idempotency.CheckAndInsert(ctx, sellerID, key, module); err != nil {
		return nil, err
	}
	return func() {
		if err := s.idempotency.Delete(context.WithoutCancel(ctx), sellerID, key, module); err != nil {
			s.logger.Warn("release idempotency key", slog.String("module", module), slog.Any("error", err))
		}
	}, nil
}

// transition is a committed status change reported after the transaction.
type transition struct {
	document string
	id       int64
	from     string
	to       string
	meta     map[string]any
}

// afterCommit fans committed transitions out to audit, metrics and the cache.
func (s *Service) afterCommit(ctx context.Context, actor shared.Actor, changes ...transition) {
	for _, c := range changes {
		if s.metrics != nil {
			s.metrics.ObserveTransition(c.document, c.from, c.to)
		}
		if s.audit != nil {
			meta := map[string]any{"from": c.from, "to": c.to}
			for k, v := range c.meta {
				meta[k] = v
			}
			err := s.audit.Record(ctx, shared.AuditLog{
				ActorID:  actor.UserID,
				SellerID: actor.SellerID,
				Action:   c.document + "_" + c.to,
				Entity:   c.document,
				EntityID: strconv.FormatInt(c.id, 10),
				Meta:     meta,
				At:       s.now(),
			})
			if err != nil {
				s.logger.Warn("record audit", slog.String("entity", c.document), slog.Any("error", err))
			}
		}
	}
	s.bumpCache(ctx, actor.SellerID)
}

func (s *Service) bumpCache(ctx context.Context, sellerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, sellerID); err != nil {
		s.logger.Warn("bump analytics cache", slog.Int64("seller_id", sellerID), slog.Any("error", err))
	}
}

// buildItems validates requested lines and prices them.
// ensureItems fails with NOT_FOUND when an item names a product or variant
// outside the actor's catalog.
func (s *Service) ensureItems(ctx context.Context, actor shared.Actor, reqs []ItemRequest) error {
	if s.catalog == nil {
		return nil
	}
	for _, req := range reqs {
		if err := s.catalog.EnsureProduct(ctx, actor, req.ProductID); err != nil {
			return err
		}
		if req.VariantID != nil {
			if err := s.catalog.EnsureVariant(ctx, actor, *req.VariantID); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildItems(reqs []ItemRequest) ([]LineItem, []totals.Line, error) {
	items := make([]LineItem, 0, len(reqs))
	lines := make([]totals.Line, 0, len(reqs))
	for _, req := range reqs {
		if req.Quantity < 1 {
			return nil, nil, ErrItemQuantity
		}
		if req.UnitPrice.IsNegative() {
			return nil, nil, ErrItemPrice
		}
		items = append(items, LineItem{
			ProductID:   req.ProductID,
			VariantID:   req.VariantID,
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
			TotalPrice:  totals.LineTotal(req.Quantity, req.UnitPrice),
		})
		lines = append(lines, totals.Line{Quantity: req.Quantity, UnitPrice: req.UnitPrice})
	}
	return items, lines, nil
}

func linesOf(items []LineItem) []totals.Line {
	lines := make([]totals.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, totals.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return lines
}

// computeAmounts applies the totals formula after validating rate and discount.
func computeAmounts(lines []totals.Line, taxRate, discount decimal.Decimal) (Amounts, error) {
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return Amounts{}, ErrTaxRate
	}
	res := totals.Calculate(lines, taxRate, discount)
	if discount.IsNegative() || res.Discount.GreaterThan(res.Subtotal) {
		return Amounts{}, ErrDiscount
	}
	return Amounts{
		TaxRate:   taxRate,
		Discount:  res.Discount,
		Subtotal:  res.Subtotal,
		TaxAmount: res.TaxAmount,
		Total:     res.Total,
	}, nil
}

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
