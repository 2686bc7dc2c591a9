package deliveries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

// ListFilter narrows delivery listings.
type ListFilter struct {
	WarehouseID *uuid.UUID
	Status      *enums.DeliveryStatus
	Limit       int
	Offset      int
}

// Repository manages persistence for deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, delivery *models.Delivery) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	List(ctx context.Context, filter ListFilter) ([]models.Delivery, int64, error)
	ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, actorID *uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a delivery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Delivery, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Delivery{})
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
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

	var deliveries []models.Delivery
	if err := query.Preload("Items").Order("created_at DESC").Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

// ClaimStatus advances status only when the document still sits in the
// expected pre-state, stamping the timestamp column matching the target.
func (r *repository) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, actorID *uuid.UUID, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case enums.DeliveryStatusPicked:
		updates["picked_at"] = at
	case enums.DeliveryStatusPacked:
		updates["packed_at"] = at
	case enums.DeliveryStatusValidated:
		updates["validated_at"] = at
		updates["validated_by"] = actorID
	}
	result := r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}
