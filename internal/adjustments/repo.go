package adjustments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

// ListFilter narrows adjustment listings.
type ListFilter struct {
	WarehouseID *uuid.UUID
	ProductID   *uuid.UUID
	Status      *enums.AdjustmentStatus
	Limit       int
	Offset      int
}

// Repository manages persistence for adjustments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, adjustment *models.Adjustment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Adjustment, error)
	List(ctx context.Context, filter ListFilter) ([]models.Adjustment, int64, error)
	ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.AdjustmentStatus, validatedBy *uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an adjustment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, adjustment *models.Adjustment) error {
	return r.db.WithContext(ctx).Create(adjustment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Adjustment, error) {
	var adjustment models.Adjustment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&adjustment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &adjustment, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Adjustment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Adjustment{})
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

	var adjustments []models.Adjustment
	if err := query.Order("created_at DESC").Find(&adjustments).Error; err != nil {
		return nil, 0, err
	}
	return adjustments, total, nil
}

// ClaimStatus advances status only when the document still sits in the
// expected pre-state.
func (r *repository) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.AdjustmentStatus, validatedBy *uuid.UUID, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == enums.AdjustmentStatusValidated {
		updates["validated_at"] = at
		updates["validated_by"] = validatedBy
	}
	result := r.db.WithContext(ctx).Model(&models.Adjustment{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}
