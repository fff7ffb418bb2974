package warehouse

import "time"

// Level names one tier of the warehouse hierarchy.
type Level string

const (
	LevelWarehouse Level = "warehouse"
	LevelFloor     Level = "floor"
	LevelArea      Level = "area"
	LevelRack      Level = "rack"
	LevelShelf     Level = "shelf"
	LevelBin       Level = "bin"
)

// Levels lists the hierarchy from the root down.
var Levels = []Level{LevelWarehouse, LevelFloor, LevelArea, LevelRack, LevelShelf, LevelBin}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// Child returns the level directly below l. Bins have no child level.
func (l Level) Child() (Level, bool) {
	for i, known := range Levels {
		if known == l && i+1 < len(Levels) {
			return Levels[i+1], true
		}
	}
	return "", false
}

// Warehouse is the root of a seller's storage hierarchy.
type Warehouse struct {
	ID        int64     `json:"id"`
	SellerID  int64     `json:"sellerId"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FloorPlan is a floor of a warehouse.
type FloorPlan struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	WarehouseID int64     `json:"warehouseId"`
	Floor       string    `json:"floor"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Area is a zone on a floor.
type Area struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	WarehouseID int64     `json:"warehouseId"`
	FloorPlanID int64     `json:"floorPlanId"`
	Code        string    `json:"code"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Rack struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	WarehouseID int64     `json:"warehouseId"`
	AreaID      int64     `json:"areaId"`
	Number      int       `json:"number"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Shelf struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	WarehouseID int64     `json:"warehouseId"`
	RackID      int64     `json:"rackId"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Bin is the addressable storage slot that inventory is assigned to.
type Bin struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	WarehouseID int64     `json:"warehouseId"`
	ShelfID     int64     `json:"shelfId"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ShelfPath is a shelf together with the labels of its ancestors.
type ShelfPath struct {
	Shelf
	Floor      string
	AreaCode   string
	RackNumber int
}

// BinDetail is a bin with its resolved location and current occupancy.
type BinDetail struct {
	Bin
	Location     Location `json:"location"`
	LocationCode string   `json:"locationCode"`
	Occupancy    int      `json:"occupancy"`
	StoredQty    int64    `json:"storedQuantity"`
}

// BinFilter narrows bin listings.
type BinFilter struct {
	WarehouseID *int64
}
