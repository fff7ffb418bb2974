package inventory

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/warehouse"
)

// CatalogPort checks that products and variants belong to the actor.
type CatalogPort interface {
	EnsureProduct(ctx context.Context, actor shared.Actor, productID int64) error
	EnsureVariant(ctx context.Context, actor shared.Actor, variantID int64) error
}

// BinDirectory resolves the actor's bins.
type BinDirectory interface {
	GetBin(ctx context.Context, actor shared.Actor, binID int64) (warehouse.BinDetail, error)
	ListBins(ctx context.Context, actor shared.Actor, filter warehouse.BinFilter) ([]warehouse.BinDetail, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates product location assignment.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	bins    BinDirectory
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, bins BinDirectory, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, bins: bins, audit: audit, logger: logger, now: time.Now}
}

// Assign places an owned product or variant into an owned bin. An existing
// location for the same pair is reported as a conflict, never merged.
func (s *Service) Assign(ctx context.Context, actor shared.Actor, req AssignRequest) (ProductLocation, error) {
	item := Item{ProductID: req.ProductID, ProductVariantID: req.ProductVariantID}
	if err := validItem(item); err != nil {
		return ProductLocation{}, err
	}
	if req.Quantity <= 0 {
		return ProductLocation{}, ErrQuantity
	}
	if err := s.ensureItem(ctx, actor, item); err != nil {
		return ProductLocation{}, err
	}
	bin, err := s.bins.GetBin(ctx, actor, req.BinID)
	if err != nil {
		return ProductLocation{}, err
	}

	var out ProductLocation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.LocationExists(ctx, item, bin.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrLocationExists
		}
		out, err = tx.InsertLocation(ctx, ProductLocation{
			SellerID:         actor.SellerID,
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			BinID:            bin.ID,
			Quantity:         req.Quantity,
			CreatedAt:        s.now(),
		})
		return err
	})
	if err != nil {
		return ProductLocation{}, err
	}
	out.LocationCode = bin.LocationCode
	s.record(ctx, actor, "INVENTORY_ASSIGN", out.ID, map[string]any{"bin_id": bin.ID, "quantity": out.Quantity})
	return out, nil
}

// Update replaces the stored quantity.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, req UpdateRequest) (ProductLocation, error) {
	if req.Quantity <= 0 {
		return ProductLocation{}, ErrQuantity
	}
	var out ProductLocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.LockLocation(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		if err := s.ensureItem(ctx, actor, loc.Item()); err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdateQuantity(ctx, loc.ID, req.Quantity, now); err != nil {
			return err
		}
		loc.Quantity = req.Quantity
		loc.UpdatedAt = now
		out = loc
		return nil
	})
	if err != nil {
		return ProductLocation{}, err
	}
	s.record(ctx, actor, "INVENTORY_UPDATE", out.ID, map[string]any{"quantity": out.Quantity})
	return out, nil
}

// Remove deletes a location.
func (s *Service) Remove(ctx context.Context, actor shared.Actor, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.LockLocation(ctx, actor.SellerID, id)
		if err != nil {
			return err
		}
		if err := s.ensureItem(ctx, actor, loc.Item()); err != nil {
			return err
		}
		return tx.DeleteLocation(ctx, loc.ID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, "INVENTORY_REMOVE", id, nil)
	return nil
}

// Get returns one owned location with its bin's location code.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (ProductLocation, error) {
	loc, err := s.repo.GetLocation(ctx, actor.SellerID, id)
	if err != nil {
		return ProductLocation{}, err
	}
	bin, err := s.bins.GetBin(ctx, actor, loc.BinID)
	if err != nil {
		return ProductLocation{}, err
	}
	loc.LocationCode = bin.LocationCode
	return loc, nil
}

// GetAvailableBins lists the actor's bins with occupancy, leaving out bins
// that already hold the requested item.
func (s *Service) GetAvailableBins(ctx context.Context, actor shared.Actor, query AvailableBinsQuery) ([]warehouse.BinDetail, error) {
	bins, err := s.bins.ListBins(ctx, actor, warehouse.BinFilter{WarehouseID: query.WarehouseID})
	if err != nil {
		return nil, err
	}
	item := Item{ProductID: query.ProductID, ProductVariantID: query.ProductVariantID}
	if item.ProductID == nil && item.ProductVariantID == nil {
		return bins, nil
	}
	held, err := s.repo.BinsHolding(ctx, actor.SellerID, item)
	if err != nil {
		return nil, err
	}
	skip := make(map[int64]struct{}, len(held))
	for _, id := range held {
		skip[id] = struct{}{}
	}
	out := make([]warehouse.BinDetail, 0, len(bins))
	for _, bin := range bins {
		if _, ok := skip[bin.ID]; ok {
			continue
		}
		out = append(out, bin)
	}
	return out, nil
}

func validItem(item Item) error {
	if (item.ProductID == nil) == (item.ProductVariantID == nil) {
		return ErrItemChoice
	}
	return nil
}

func (s *Service) ensureItem(ctx context.Context, actor shared.Actor, item Item) error {
	if item.ProductID != nil {
		return s.catalog.EnsureProduct(ctx, actor, *item.ProductID)
	}
	return s.catalog.EnsureVariant(ctx, actor, *item.ProductVariantID)
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		SellerID: actor.SellerID,
		Action:   action,
		Entity:   "PRODUCT_LOCATION",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
