package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sellerdesk/internal/platform/db"
)

// RepositoryPort describes the persistence used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBin(ctx context.Context, sellerID, binID int64) (BinDetail, error)
	ListBins(ctx context.Context, sellerID int64, filter BinFilter) ([]BinDetail, error)
}

// TxRepository exposes hierarchy writes. Find* and LocateShelf only return
// rows owned by sellerID.
type TxRepository interface {
	CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error)
	FindWarehouse(ctx context.Context, sellerID, id int64) (Warehouse, error)
	CreateFloorPlan(ctx context.Context, f FloorPlan) (FloorPlan, error)
	FindFloorPlan(ctx context.Context, sellerID, id int64) (FloorPlan, error)
	CreateArea(ctx context.Context, a Area) (Area, error)
	FindArea(ctx context.Context, sellerID, id int64) (Area, error)
	CreateRack(ctx context.Context, r Rack) (Rack, error)
	FindRack(ctx context.Context, sellerID, id int64) (Rack, error)
	CreateShelf(ctx context.Context, s Shelf) (Shelf, error)
	LocateShelf(ctx context.Context, sellerID, id int64) (ShelfPath, error)
	CreateBin(ctx context.Context, b Bin) (Bin, error)

	LockLevel(ctx context.Context, level Level, sellerID, id int64) error
	CountChildren(ctx context.Context, level Level, id int64) (int, error)
	DeleteLevel(ctx context.Context, level Level, id int64) error
}

type levelTable struct {
	table       string
	childTable  string
	childColumn string
}

var levelTables = map[Level]levelTable{
	LevelWarehouse: {table: "warehouses", childTable: "floor_plans", childColumn: "warehouse_id"},
	LevelFloor:     {table: "floor_plans", childTable: "areas", childColumn: "floor_plan_id"},
	LevelArea:      {table: "areas", childTable: "racks", childColumn: "area_id"},
	LevelRack:      {table: "racks", childTable: "shelves", childColumn: "rack_id"},
	LevelShelf:     {table: "shelves", childTable: "bins", childColumn: "shelf_id"},
	LevelBin:       {table: "bins", childTable: "product_locations", childColumn: "bin_id"},
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists the hierarchy in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q querier
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

const binDetailQuery = `SELECT b.id, b.seller_id, b.warehouse_id, b.shelf_id, b.code, b.created_at,
		f.floor, a.code, r.number, s.level,
		COUNT(pl.id), COALESCE(SUM(pl.quantity), 0)
	FROM bins b
	JOIN shelves s ON s.id = b.shelf_id
	JOIN racks r ON r.id = s.rack_id
	JOIN areas a ON a.id = r.area_id
	JOIN floor_plans f ON f.id = a.floor_plan_id
	LEFT JOIN product_locations pl ON pl.bin_id = b.id
	WHERE b.seller_id = $1`

const binDetailGroup = ` GROUP BY b.id, f.floor, a.code, r.number, s.level`

// GetBin returns one owned bin with its location code.
func (r *Repository) GetBin(ctx context.Context, sellerID, binID int64) (BinDetail, error) {
	detail, err := scanBinDetail(r.pool.QueryRow(ctx, binDetailQuery+` AND b.id = $2`+binDetailGroup, sellerID, binID))
	if errors.Is(err, pgx.ErrNoRows) {
		return BinDetail{}, ErrBinNotFound
	}
	return detail, err
}

// ListBins returns the seller's bins ordered by location.
func (r *Repository) ListBins(ctx context.Context, sellerID int64, filter BinFilter) ([]BinDetail, error) {
	query := binDetailQuery
	args := []any{sellerID}
	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		query += fmt.Sprintf(" AND b.warehouse_id = $%d", len(args))
	}
	query += binDetailGroup + ` ORDER BY f.floor, a.code, r.number, s.level, b.code`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BinDetail, error) {
		return scanBinDetail(row)
	})
}

func scanBinDetail(row pgx.Row) (BinDetail, error) {
	var d BinDetail
	err := row.Scan(&d.ID, &d.SellerID, &d.WarehouseID, &d.ShelfID, &d.Code, &d.CreatedAt,
		&d.Location.Floor, &d.Location.Area, &d.Location.Rack, &d.Location.Shelf,
		&d.Occupancy, &d.StoredQty)
	if err != nil {
		return BinDetail{}, err
	}
	d.Location.Bin = d.Code
	d.LocationCode = d.Location.Code()
	return d, nil
}

func (t *txRepo) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO warehouses (seller_id, code, name, address)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		w.SellerID, w.Code, w.Name, w.Address).Scan(&w.ID, &w.CreatedAt)
	return w, translateWriteError(err)
}

func (t *txRepo) FindWarehouse(ctx context.Context, sellerID, id int64) (Warehouse, error) {
	var w Warehouse
	err := t.q.QueryRow(ctx, `SELECT id, seller_id, code, name, address, created_at
		FROM warehouses WHERE id = $1 AND seller_id = $2`, id, sellerID).
		Scan(&w.ID, &w.SellerID, &w.Code, &w.Name, &w.Address, &w.CreatedAt)
	return w, notFound(err, ErrWarehouseNotFound)
}

func (t *txRepo) CreateFloorPlan(ctx context.Context, f FloorPlan) (FloorPlan, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO floor_plans (seller_id, warehouse_id, floor, name)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		f.SellerID, f.WarehouseID, f.Floor, f.Name).Scan(&f.ID, &f.CreatedAt)
	return f, translateWriteError(err)
}

func (t *txRepo) FindFloorPlan(ctx context.Context, sellerID, id int64) (FloorPlan, error) {
	var f FloorPlan
	err := t.q.QueryRow(ctx, `SELECT id, seller_id, warehouse_id, floor, name, created_at
		FROM floor_plans WHERE id = $1 AND seller_id = $2`, id, sellerID).
		Scan(&f.ID, &f.SellerID, &f.WarehouseID, &f.Floor, &f.Name, &f.CreatedAt)
	return f, notFound(err, ErrFloorNotFound)
}

func (t *txRepo) CreateArea(ctx context.Context, a Area) (Area, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO areas (seller_id, warehouse_id, floor_plan_id, code, name)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		a.SellerID, a.WarehouseID, a.FloorPlanID, a.Code, a.Name).Scan(&a.ID, &a.CreatedAt)
	return a, translateWriteError(err)
}

func (t *txRepo) FindArea(ctx context.Context, sellerID, id int64) (Area, error) {
	var a Area
	err := t.q.QueryRow(ctx, `SELECT id, seller_id, warehouse_id, floor_plan_id, code, name, created_at
		FROM areas WHERE id = $1 AND seller_id = $2`, id, sellerID).
		Scan(&a.ID, &a.SellerID, &a.WarehouseID, &a.FloorPlanID, &a.Code, &a.Name, &a.CreatedAt)
	return a, notFound(err, ErrAreaNotFound)
}

func (t *txRepo) CreateRack(ctx context.Context, r Rack) (Rack, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO racks (seller_id, warehouse_id, area_id, number)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		r.SellerID, r.WarehouseID, r.AreaID, r.Number).Scan(&r.ID, &r.CreatedAt)
	return r, translateWriteError(err)
}

func (t *txRepo) FindRack(ctx context.Context, sellerID, id int64) (Rack, error) {
	var r Rack
	err := t.q.QueryRow(ctx, `SELECT id, seller_id, warehouse_id, area_id, number, created_at
		FROM racks WHERE id = $1 AND seller_id = $2`, id, sellerID).
		Scan(&r.ID, &r.SellerID, &r.WarehouseID, &r.AreaID, &r.Number, &r.CreatedAt)
	return r, notFound(err, ErrRackNotFound)
}

func (t *txRepo) CreateShelf(ctx context.Context, s Shelf) (Shelf, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO shelves (seller_id, warehouse_id, rack_id, level)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		s.SellerID, s.WarehouseID, s.RackID, s.Level).Scan(&s.ID, &s.CreatedAt)
	return s, translateWriteError(err)
}

func (t *txRepo) LocateShelf(ctx context.Context, sellerID, id int64) (ShelfPath, error) {
	var p ShelfPath
	err := t.q.QueryRow(ctx, `SELECT s.id, s.seller_id, s.warehouse_id, s.rack_id, s.level, s.created_at,
			f.floor, a.code, r.number
		FROM shelves s
		JOIN racks r ON r.id = s.rack_id
		JOIN areas a ON a.id = r.area_id
		JOIN floor_plans f ON f.id = a.floor_plan_id
		WHERE s.id = $1 AND s.seller_id = $2`, id, sellerID).
		Scan(&p.ID, &p.SellerID, &p.WarehouseID, &p.RackID, &p.Level, &p.CreatedAt,
			&p.Floor, &p.AreaCode, &p.RackNumber)
	return p, notFound(err, ErrShelfNotFound)
}

func (t *txRepo) CreateBin(ctx context.Context, b Bin) (Bin, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO bins (seller_id, warehouse_id, shelf_id, code)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		b.SellerID, b.WarehouseID, b.ShelfID, b.Code).Scan(&b.ID, &b.CreatedAt)
	return b, translateWriteError(err)
}

func (t *txRepo) LockLevel(ctx context.Context, level Level, sellerID, id int64) error {
	meta := levelTables[level]
	var locked int64
	err := t.q.QueryRow(ctx, `SELECT id FROM `+meta.table+` WHERE id = $1 AND seller_id = $2 FOR UPDATE`,
		id, sellerID).Scan(&locked)
	return notFound(err, notFoundByLevel[level])
}

func (t *txRepo) CountChildren(ctx context.Context, level Level, id int64) (int, error) {
	meta := levelTables[level]
	var count int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM `+meta.childTable+` WHERE `+meta.childColumn+` = $1`, id).Scan(&count)
	return count, err
}

func (t *txRepo) DeleteLevel(ctx context.Context, level Level, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM `+levelTables[level].table+` WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return errReferenced
	}
	return err
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return errDuplicate
	case db.IsForeignKeyViolation(err):
		return errReferenced
	default:
		return err
	}
}
