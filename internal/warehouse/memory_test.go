package warehouse

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepo struct {
	mu         sync.Mutex
	warehouses map[int64]Warehouse
	floors     map[int64]FloorPlan
	areas      map[int64]Area
	racks      map[int64]Rack
	shelves    map[int64]Shelf
	bins       map[int64]Bin
	locations  map[int64]int64 // bin id -> stored quantity of one product location
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		warehouses: make(map[int64]Warehouse),
		floors:     make(map[int64]FloorPlan),
		areas:      make(map[int64]Area),
		racks:      make(map[int64]Rack),
		shelves:    make(map[int64]Shelf),
		bins:       make(map[int64]Bin),
		locations:  make(map[int64]int64),
	}
}

type memoryTx struct {
	repo *memoryRepo
}

// WithTx has no rollback; every write below checks its constraints before mutating.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) GetBin(_ context.Context, sellerID, binID int64) (BinDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bin, ok := r.bins[binID]
	if !ok || bin.SellerID != sellerID {
		return BinDetail{}, ErrBinNotFound
	}
	return r.detail(bin), nil
}

func (r *memoryRepo) ListBins(_ context.Context, sellerID int64, filter BinFilter) ([]BinDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BinDetail
	for _, bin := range r.bins {
		if bin.SellerID != sellerID {
			continue
		}
		if filter.WarehouseID != nil && bin.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, r.detail(bin))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationCode < out[j].LocationCode })
	return out, nil
}

func (r *memoryRepo) detail(bin Bin) BinDetail {
	shelf := r.shelves[bin.ShelfID]
	rack := r.racks[shelf.RackID]
	area := r.areas[rack.AreaID]
	floor := r.floors[area.FloorPlanID]
	d := BinDetail{
		Bin:      bin,
		Location: Location{Floor: floor.Floor, Area: area.Code, Rack: rack.Number, Shelf: shelf.Level, Bin: bin.Code},
	}
	if qty, ok := r.locations[bin.ID]; ok {
		d.Occupancy = 1
		d.StoredQty = qty
	}
	d.LocationCode = d.Location.Code()
	return d
}

func (t *memoryTx) CreateWarehouse(_ context.Context, w Warehouse) (Warehouse, error) {
	for _, existing := range t.repo.warehouses {
		if existing.SellerID == w.SellerID && existing.Code == w.Code {
			return Warehouse{}, errDuplicate
		}
	}
	w.ID = t.repo.id()
	w.CreatedAt = time.Now()
	t.repo.warehouses[w.ID] = w
	return w, nil
}

func (t *memoryTx) FindWarehouse(_ context.Context, sellerID, id int64) (Warehouse, error) {
	w, ok := t.repo.warehouses[id]
	if !ok || w.SellerID != sellerID {
		return Warehouse{}, ErrWarehouseNotFound
	}
	return w, nil
}

func (t *memoryTx) CreateFloorPlan(_ context.Context, f FloorPlan) (FloorPlan, error) {
	for _, existing := range t.repo.floors {
		if existing.WarehouseID == f.WarehouseID && existing.Floor == f.Floor {
			return FloorPlan{}, errDuplicate
		}
	}
	f.ID = t.repo.id()
	t.repo.floors[f.ID] = f
	return f, nil
}

func (t *memoryTx) FindFloorPlan(_ context.Context, sellerID, id int64) (FloorPlan, error) {
	f, ok := t.repo.floors[id]
	if !ok || f.SellerID != sellerID {
		return FloorPlan{}, ErrFloorNotFound
	}
	return f, nil
}

func (t *memoryTx) CreateArea(_ context.Context, a Area) (Area, error) {
	for _, existing := range t.repo.areas {
		if existing.FloorPlanID == a.FloorPlanID && existing.Code == a.Code {
			return Area{}, errDuplicate
		}
	}
	a.ID = t.repo.id()
	t.repo.areas[a.ID] = a
	return a, nil
}

func (t *memoryTx) FindArea(_ context.Context, sellerID, id int64) (Area, error) {
	a, ok := t.repo.areas[id]
	if !ok || a.SellerID != sellerID {
		return Area{}, ErrAreaNotFound
	}
	return a, nil
}

func (t *memoryTx) CreateRack(_ context.Context, r Rack) (Rack, error) {
	for _, existing := range t.repo.racks {
		if existing.AreaID == r.AreaID && existing.Number == r.Number {
			return Rack{}, errDuplicate
		}
	}
	r.ID = t.repo.id()
	t.repo.racks[r.ID] = r
	return r, nil
}

func (t *memoryTx) FindRack(_ context.Context, sellerID, id int64) (Rack, error) {
	r, ok := t.repo.racks[id]
	if !ok || r.SellerID != sellerID {
		return Rack{}, ErrRackNotFound
	}
	return r, nil
}

func (t *memoryTx) CreateShelf(_ context.Context, s Shelf) (Shelf, error) {
	for _, existing := range t.repo.shelves {
		if existing.RackID == s.RackID && existing.Level == s.Level {
			return Shelf{}, errDuplicate
		}
	}
	s.ID = t.repo.id()
	t.repo.shelves[s.ID] = s
	return s, nil
}

func (t *memoryTx) LocateShelf(_ context.Context, sellerID, id int64) (ShelfPath, error) {
	s, ok := t.repo.shelves[id]
	if !ok || s.SellerID != sellerID {
		return ShelfPath{}, ErrShelfNotFound
	}
	rack := t.repo.racks[s.RackID]
	area := t.repo.areas[rack.AreaID]
	floor := t.repo.floors[area.FloorPlanID]
	return ShelfPath{Shelf: s, Floor: floor.Floor, AreaCode: area.Code, RackNumber: rack.Number}, nil
}

func (t *memoryTx) CreateBin(_ context.Context, b Bin) (Bin, error) {
	for _, existing := range t.repo.bins {
		if existing.ShelfID == b.ShelfID && existing.Code == b.Code {
			return Bin{}, errDuplicate
		}
	}
	b.ID = t.repo.id()
	t.repo.bins[b.ID] = b
	return b, nil
}

func (t *memoryTx) LockLevel(_ context.Context, level Level, sellerID, id int64) error {
	var owner int64
	var ok bool
	switch level {
	case LevelWarehouse:
		var w Warehouse
		w, ok = t.repo.warehouses[id]
		owner = w.SellerID
	case LevelFloor:
		var f FloorPlan
		f, ok = t.repo.floors[id]
		owner = f.SellerID
	case LevelArea:
		var a Area
		a, ok = t.repo.areas[id]
		owner = a.SellerID
	case LevelRack:
		var r Rack
		r, ok = t.repo.racks[id]
		owner = r.SellerID
	case LevelShelf:
		var s Shelf
		s, ok = t.repo.shelves[id]
		owner = s.SellerID
	case LevelBin:
		var b Bin
		b, ok = t.repo.bins[id]
		owner = b.SellerID
	}
	if !ok || owner != sellerID {
		return notFoundByLevel[level]
	}
	return nil
}

func (t *memoryTx) CountChildren(_ context.Context, level Level, id int64) (int, error) {
	count := 0
	switch level {
	case LevelWarehouse:
		for _, f := range t.repo.floors {
			if f.WarehouseID == id {
				count++
			}
		}
	case LevelFloor:
		for _, a := range t.repo.areas {
			if a.FloorPlanID == id {
				count++
			}
		}
	case LevelArea:
		for _, r := range t.repo.racks {
			if r.AreaID == id {
				count++
			}
		}
	case LevelRack:
		for _, s := range t.repo.shelves {
			if s.RackID == id {
				count++
			}
		}
	case LevelShelf:
		for _, b := range t.repo.bins {
			if b.ShelfID == id {
				count++
			}
		}
	case LevelBin:
		if _, ok := t.repo.locations[id]; ok {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) DeleteLevel(_ context.Context, level Level, id int64) error {
	switch level {
	case LevelWarehouse:
		delete(t.repo.warehouses, id)
	case LevelFloor:
		delete(t.repo.floors, id)
	case LevelArea:
		delete(t.repo.areas, id)
	case LevelRack:
		delete(t.repo.racks, id)
	case LevelShelf:
		delete(t.repo.shelves, id)
	case LevelBin:
		delete(t.repo.bins, id)
	}
	return nil
}
