package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

// ListFilter narrows transfer listings. WarehouseID matches either end of the
// transfer.
type ListFilter struct {
	WarehouseID *uuid.UUID
	Status      *enums.TransferStatus
	Limit       int
	Offset      int
}

// Repository manages persistence for transfers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.Transfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]models.Transfer, int64, error)
	ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, actorID *uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transfer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transfer *models.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transfer, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transfer{})
	if filter.WarehouseID != nil {
		query = query.Where("from_warehouse_id = ? OR to_warehouse_id = ?", *filter.WarehouseID, *filter.WarehouseID)
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

	var transfers []models.Transfer
	if err := query.Preload("Items").Order("created_at DESC").Find(&transfers).Error; err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}

// ClaimStatus advances status only when the document still sits in the
// expected pre-state, stamping the timestamp column matching the target.
func (r *repository) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, actorID *uuid.UUID, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case enums.TransferStatusDispatched:
		updates["dispatched_at"] = at
	case enums.TransferStatusReceived:
		updates["received_at"] = at
		updates["received_by"] = actorID
	}
	result := r.db.WithContext(ctx).Model(&models.Transfer{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}
