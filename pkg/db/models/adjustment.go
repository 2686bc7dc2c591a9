package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Adjustment reconciles a physical count against the recorded quantity for one
// (product, warehouse) pair. Difference is computed at creation and never
// recomputed.
type Adjustment struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Ref         string                 `gorm:"column:ref;not null;uniqueIndex"`
	ProductID   uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	WarehouseID uuid.UUID              `gorm:"column:warehouse_id;type:uuid;not null"`
	PreviousQty int                    `gorm:"column:previous_qty;not null"`
	CountedQty  int                    `gorm:"column:counted_qty;not null"`
	Difference  int                    `gorm:"column:difference;not null"`
	Reason      string                 `gorm:"column:reason;not null"`
	Status      enums.AdjustmentStatus `gorm:"column:status;not null;default:draft"`
	CreatedBy   uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	ValidatedAt *time.Time             `gorm:"column:validated_at"`
	ValidatedBy *uuid.UUID             `gorm:"column:validated_by;type:uuid"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
