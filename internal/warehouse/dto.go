package warehouse

// CreateWarehouseRequest is the payload of warehouse.create.
type CreateWarehouseRequest struct {
	Code    string `json:"code" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

type CreateFloorPlanRequest struct {
	WarehouseID int64  `json:"warehouseId" validate:"required,gt=0"`
	Floor       string `json:"floor" validate:"required"`
	Name        string `json:"name,omitempty" validate:"max=120"`
}

type CreateAreaRequest struct {
	FloorPlanID int64  `json:"floorPlanId" validate:"required,gt=0"`
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name,omitempty" validate:"max=120"`
}

type CreateRackRequest struct {
	AreaID int64 `json:"areaId" validate:"required,gt=0"`
	Number int   `json:"number"`
}

type CreateShelfRequest struct {
	RackID int64 `json:"rackId" validate:"required,gt=0"`
	Level  int   `json:"level"`
}

// CreateBinRequest is the payload of bin.create.
type CreateBinRequest struct {
	ShelfID int64  `json:"shelfId" validate:"required,gt=0"`
	Code    string `json:"code" validate:"required"`
}
