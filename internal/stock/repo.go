package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
)

// ListFilter narrows stock record listings.
type ListFilter struct {
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Limit       int
	Offset      int
}

// LowStockRow pairs a stock record with the product data needed for reorder
// alerts.
type LowStockRow struct {
	ProductID    uuid.UUID `gorm:"column:product_id"`
	WarehouseID  uuid.UUID `gorm:"column:warehouse_id"`
	SKU          string    `gorm:"column:sku"`
	Name         string    `gorm:"column:name"`
	OnHand       int       `gorm:"column:on_hand"`
	Reserved     int       `gorm:"column:reserved"`
	ReorderLevel int       `gorm:"column:reorder_level"`
}

// Repository manages persistence for stock records. Every quantity mutation is
// a single guarded UPDATE so the invariant check and the write are one atomic
// statement; callers inspect the affected row count to learn whether the guard
// held.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error)
	Create(ctx context.Context, record *models.StockRecord) error
	List(ctx context.Context, filter ListFilter) ([]models.StockRecord, int64, error)
	AddOnHand(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error)
	Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error)
	Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error)
	Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error)
	DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error)
	SetOnHand(ctx context.Context, productID, warehouseID uuid.UUID, expected, counted int) (int64, error)
	DeleteEmptyByProduct(ctx context.Context, productID uuid.UUID) error
	DeleteEmptyByWarehouse(ctx context.Context, warehouseID uuid.UUID) error
	AnyOnHandByProduct(ctx context.Context, productID uuid.UUID) (bool, error)
	AnyOnHandByWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error)
	ListBelowReorder(ctx context.Context) ([]LowStockRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error) {
	var record models.StockRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.StockRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.StockRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockRecord{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []models.StockRecord
	if err := query.Order("product_id, warehouse_id").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) AddOnHand(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		UpdateColumns(map[string]any{
			"on_hand":      gorm.Expr("on_hand + ?", qty),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ? AND on_hand - reserved >= ?", productID, warehouseID, qty).
		UpdateColumns(map[string]any{
			"reserved":     gorm.Expr("reserved + ?", qty),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ? AND reserved >= ?", productID, warehouseID, qty).
		UpdateColumns(map[string]any{
			"reserved":     gorm.Expr("reserved - ?", qty),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ? AND on_hand - reserved >= ?", productID, warehouseID, qty).
		UpdateColumns(map[string]any{
			"on_hand":      gorm.Expr("on_hand - ?", qty),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ? AND on_hand >= ? AND reserved >= ?", productID, warehouseID, qty, qty).
		UpdateColumns(map[string]any{
			"on_hand":      gorm.Expr("on_hand - ?", qty),
			"reserved":     gorm.Expr("reserved - ?", qty),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) SetOnHand(ctx context.Context, productID, warehouseID uuid.UUID, expected, counted int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND warehouse_id = ? AND on_hand = ? AND reserved <= ?", productID, warehouseID, expected, counted).
		UpdateColumns(map[string]any{
			"on_hand":      counted,
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteEmptyByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND on_hand = 0", productID).
		Delete(&models.StockRecord{}).Error
}

func (r *repository) DeleteEmptyByWarehouse(ctx context.Context, warehouseID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("warehouse_id = ? AND on_hand = 0", warehouseID).
		Delete(&models.StockRecord{}).Error
}

func (r *repository) AnyOnHandByProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("product_id = ? AND on_hand > 0", productID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) AnyOnHandByWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StockRecord{}).
		Where("warehouse_id = ? AND on_hand > 0", warehouseID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListBelowReorder(ctx context.Context) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).
		Table("stock_records").
		Select("stock_records.product_id, stock_records.warehouse_id, products.sku, products.name, stock_records.on_hand, stock_records.reserved, products.reorder_level").
		Joins("JOIN products ON products.id = stock_records.product_id").
		Where("products.reorder_level > 0 AND stock_records.on_hand <= products.reorder_level").
		Order("products.sku, stock_records.warehouse_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
