package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Service manages the warehouse hierarchy of the acting seller.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs the warehouse service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateWarehouse registers a warehouse whose code is unique per seller.
func (s *Service) CreateWarehouse(ctx context.Context, actor shared.Actor, req CreateWarehouseRequest) (Warehouse, error) {
	code := cases.Upper(language.Und).String(strings.TrimSpace(req.Code))
	if code == "" {
		return Warehouse{}, shared.BadRequest("Warehouse code is required")
	}
	var out Warehouse
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.CreateWarehouse(ctx, Warehouse{
			SellerID: actor.SellerID,
			Code:     code,
			Name:     strings.TrimSpace(req.Name),
			Address:  strings.TrimSpace(req.Address),
		})
		if err != nil {
			return s.writeError(LevelWarehouse, LevelWarehouse, err)
		}
		out = created
		return nil
	})
	if err != nil {
		return Warehouse{}, err
	}
	s.logCreated(LevelWarehouse, actor, out.ID)
	return out, nil
}

// CreateFloorPlan adds a floor to an owned warehouse.
func (s *Service) CreateFloorPlan(ctx context.Context, actor shared.Actor, req CreateFloorPlanRequest) (FloorPlan, error) {
	floor, err := NormalizeLabel("Floor", req.Floor)
	if err != nil {
		return FloorPlan{}, err
	}
	var out FloorPlan
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		parent, err := tx.FindWarehouse(ctx, actor.SellerID, req.WarehouseID)
		if err != nil {
			return err
		}
		created, err := tx.CreateFloorPlan(ctx, FloorPlan{
			SellerID:    actor.SellerID,
			WarehouseID: parent.ID,
			Floor:       floor,
			Name:        strings.TrimSpace(req.Name),
		})
		if err != nil {
			return s.writeError(LevelFloor, LevelWarehouse, err)
		}
		out = created
		return nil
	})
	if err != nil {
		return FloorPlan{}, err
	}
	s.logCreated(LevelFloor, actor, out.ID)
	return out, nil
}

// CreateArea adds an area to an owned floor.
func (s *Service) CreateArea(ctx context.Context, actor shared.Actor, req CreateAreaRequest) (Area, error) {
	code, err := NormalizeLabel("Area code", req.Code)
	if err != nil {
		return Area{}, err
	}
	var out Area
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		parent, err := tx.FindFloorPlan(ctx, actor.SellerID, req.FloorPlanID)
		if err != nil {
			return err
		}
		created, err := tx.CreateArea(ctx, Area{
			SellerID:    actor.SellerID,
			WarehouseID: parent.WarehouseID,
			FloorPlanID: parent.ID,
			Code:        code,
			Name:        strings.TrimSpace(req.Name),
		})
		if err != nil {
			return s.writeError(LevelArea, LevelFloor, err)
		}
		out = created
		return nil
	})
	if err != nil {
		return Area{}, err
	}
	s.logCreated(LevelArea, actor, out.ID)
	return out, nil
}

// CreateRack adds a numbered rack to an owned area.
func (s *Service) CreateRack(ctx context.Context, actor shared.Actor, req CreateRackRequest) (Rack, error) {
	if err := ValidRack(req.Number); err != nil {
		return Rack{}, err
	}
	var out Rack
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		parent, err := tx.FindArea(ctx, actor.SellerID, req.AreaID)
		if err != nil {
			return err
		}
		created, err := tx.CreateRack(ctx, Rack{
			SellerID:    actor.SellerID,
			WarehouseID: parent.WarehouseID,
			AreaID:      parent.ID,
			Number:      req.Number,
		})
		if err != nil {
			return s.writeError(LevelRack, LevelArea, err)
		}
		out = created
		return nil
	})
	if err != nil {
		return Rack{}, err
	}
	s.logCreated(LevelRack, actor, out.ID)
	return out, nil
}

// CreateShelf adds a shelf level to an owned rack.
func (s *Service) CreateShelf(ctx context.Context, actor shared.Actor, req CreateShelfRequest) (Shelf, error) {
	if err := ValidShelf(req.Level); err != nil {
		return Shelf{}, err
	}
	var out Shelf
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		parent, err := tx.FindRack(ctx, actor.SellerID, req.RackID)
		if err != nil {
			return err
		}
		created, err := tx.CreateShelf(ctx, Shelf{
			SellerID:    actor.SellerID,
			WarehouseID: parent.WarehouseID,
			RackID:      parent.ID,
			Level:       req.Level,
		})
		if err != nil {
			return s.writeError(LevelShelf, LevelRack, err)
		}
		out = created
		return nil
	})
	if err != nil {
		return Shelf{}, err
	}
	s.logCreated(LevelShelf, actor, out.ID)
	return out, nil
}

// CreateBin adds a bin to an owned shelf and returns it with its location code.
func (s *Service) CreateBin(ctx context.Context, actor shared.Actor, req CreateBinRequest) (BinDetail, error) {
	code, err := NormalizeLabel("Bin code", req.Code)
	if err != nil {
		return BinDetail{}, err
	}
	var out BinDetail
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		path, err := tx.LocateShelf(ctx, actor.SellerID, req.ShelfID)
		if err != nil {
			return err
		}
		created, err := tx.CreateBin(ctx, Bin{
			SellerID:    actor.SellerID,
			WarehouseID: path.WarehouseID,
			ShelfID:     path.ID,
			Code:        code,
		})
		if err != nil {
			return s.writeError(LevelBin, LevelShelf, err)
		}
		out = BinDetail{
			Bin: created,
			Location: Location{
				Floor: path.Floor,
				Area:  path.AreaCode,
				Rack:  path.RackNumber,
				Shelf: path.Level,
				Bin:   created.Code,
			},
		}
		out.LocationCode = out.Location.Code()
		return nil
	})
	if err != nil {
		return BinDetail{}, err
	}
	s.logCreated(LevelBin, actor, out.ID)
	return out, nil
}

// GetBin returns an owned bin with its location code and occupancy.
func (s *Service) GetBin(ctx context.Context, actor shared.Actor, binID int64) (BinDetail, error) {
	return s.repo.GetBin(ctx, actor.SellerID, binID)
}

// GetLocationCode resolves the location code of an owned bin.
func (s *Service) GetLocationCode(ctx context.Context, actor shared.Actor, binID int64) (string, error) {
	bin, err := s.repo.GetBin(ctx, actor.SellerID, binID)
	if err != nil {
		return "", err
	}
	return bin.LocationCode, nil
}

// ListBins returns the seller's bins, optionally within one warehouse.
func (s *Service) ListBins(ctx context.Context, actor shared.Actor, filter BinFilter) ([]BinDetail, error) {
	return s.repo.ListBins(ctx, actor.SellerID, filter)
}

// DecodeLocation splits a location code into its labels.
func (s *Service) DecodeLocation(code string) (Location, error) {
	return Decompose(strings.TrimSpace(code))
}

// DeleteLevel removes one node of the hierarchy. Nodes with children, and bins
// holding product locations, are refused.
func (s *Service) DeleteLevel(ctx context.Context, actor shared.Actor, level Level, id int64) error {
	if !level.Valid() {
		return errUnknownLevel(string(level))
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockLevel(ctx, level, actor.SellerID, id); err != nil {
			return err
		}
		count, err := tx.CountChildren(ctx, level, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return occupiedError(level)
		}
		if err := tx.DeleteLevel(ctx, level, id); err != nil {
			if errors.Is(err, errReferenced) {
				return occupiedError(level)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("warehouse level deleted",
		slog.String("level", string(level)),
		slog.Int64("id", id),
		slog.Int64("seller_id", actor.SellerID))
	return nil
}

func occupiedError(level Level) error {
	if level == LevelBin {
		return ErrBinOccupied
	}
	child, _ := level.Child()
	return errHasChildren(level, child)
}

// writeError maps raw insert failures of level onto caller-facing errors.
func (s *Service) writeError(level, parent Level, err error) error {
	switch {
	case errors.Is(err, errDuplicate):
		return takenByLevel[level]
	case errors.Is(err, errReferenced):
		return notFoundByLevel[parent]
	default:
		return err
	}
}

func (s *Service) logCreated(level Level, actor shared.Actor, id int64) {
	s.logger.Info("warehouse level created",
		slog.String("level", string(level)),
		slog.Int64("id", id),
		slog.Int64("seller_id", actor.SellerID))
}
