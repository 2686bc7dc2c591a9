package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

// ListFilter narrows receipt listings.
type ListFilter struct {
	WarehouseID *uuid.UUID
	Status      *enums.ReceiptStatus
	Limit       int
	Offset      int
}

// Repository manages persistence for receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, filter ListFilter) ([]models.Receipt, int64, error)
	ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.ReceiptStatus, validatedBy *uuid.UUID, at time.Time) (int64, error)
	UpdateDraft(ctx context.Context, id uuid.UUID, supplier string, at time.Time) (int64, error)
	ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []models.ReceiptItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a receipt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, receipt *models.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Receipt, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Receipt{})
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

	var receipts []models.Receipt
	if err := query.Preload("Items").Order("created_at DESC").Find(&receipts).Error; err != nil {
		return nil, 0, err
	}
	return receipts, total, nil
}

// ClaimStatus advances status only when the document still sits in the
// expected pre-state. The WHERE clause makes the check-and-set one atomic
// statement; zero affected rows means another caller won the race or the
// document is gone.
func (r *repository) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.ReceiptStatus, validatedBy *uuid.UUID, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == enums.ReceiptStatusValidated {
		updates["validated_at"] = at
		updates["validated_by"] = validatedBy
	}
	result := r.db.WithContext(ctx).Model(&models.Receipt{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}

// UpdateDraft rewrites the header fields while the document is still a draft.
// The status guard in the WHERE clause rejects edits that lost a race with
// validation.
func (r *repository) UpdateDraft(ctx context.Context, id uuid.UUID, supplier string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Receipt{}).
		Where("id = ? AND status = ?", id, enums.ReceiptStatusDraft).
		UpdateColumns(map[string]any{
			"supplier":   supplier,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []models.ReceiptItem) error {
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Delete(&models.ReceiptItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
