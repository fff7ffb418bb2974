package warehouse

import (
	"errors"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

var (
	ErrWarehouseNotFound = shared.NotFound("Warehouse not found")
	ErrFloorNotFound     = shared.NotFound("Floor plan not found")
	ErrAreaNotFound      = shared.NotFound("Area not found")
	ErrRackNotFound      = shared.NotFound("Rack not found")
	ErrShelfNotFound     = shared.NotFound("Shelf not found")
	ErrBinNotFound       = shared.NotFound("Bin not found")

	ErrWarehouseCodeTaken = shared.Conflict("Warehouse code already exists")
	ErrFloorTaken         = shared.Conflict("Floor already exists in this warehouse")
	ErrAreaTaken          = shared.Conflict("Area code already exists on this floor")
	ErrRackTaken          = shared.Conflict("Rack number already exists in this area")
	ErrShelfTaken         = shared.Conflict("Shelf level already exists on this rack")
	ErrBinTaken           = shared.Conflict("Bin code already exists on this shelf")

	ErrBinOccupied = shared.Conflict("Cannot delete a bin that still holds product locations")
)

// errDuplicate and errReferenced are raw repository outcomes the service
// translates into level specific messages.
var (
	errDuplicate  = errors.New("warehouse: duplicate label")
	errReferenced = errors.New("warehouse: row still referenced")
)

var notFoundByLevel = map[Level]error{
	LevelWarehouse: ErrWarehouseNotFound,
	LevelFloor:     ErrFloorNotFound,
	LevelArea:      ErrAreaNotFound,
	LevelRack:      ErrRackNotFound,
	LevelShelf:     ErrShelfNotFound,
	LevelBin:       ErrBinNotFound,
}

var takenByLevel = map[Level]error{
	LevelWarehouse: ErrWarehouseCodeTaken,
	LevelFloor:     ErrFloorTaken,
	LevelArea:      ErrAreaTaken,
	LevelRack:      ErrRackTaken,
	LevelShelf:     ErrShelfTaken,
	LevelBin:       ErrBinTaken,
}

func errHasChildren(level, child Level) error {
	return shared.Conflict("Cannot delete %s while it still has %s entries", level, child)
}

func errUnknownLevel(raw string) error {
	return shared.BadRequest("Unknown level %q", raw)
}
