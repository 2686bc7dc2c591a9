package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Transfer moves stock between two warehouses; dispatch removes quantities at
// the source, receive adds them at the destination.
type Transfer struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Ref             string               `gorm:"column:ref;not null;uniqueIndex"`
	FromWarehouseID uuid.UUID            `gorm:"column:from_warehouse_id;type:uuid;not null"`
	ToWarehouseID   uuid.UUID            `gorm:"column:to_warehouse_id;type:uuid;not null"`
	Status          enums.TransferStatus `gorm:"column:status;not null;default:draft"`
	Items           []TransferItem       `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
	CreatedBy       uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	DispatchedAt    *time.Time           `gorm:"column:dispatched_at"`
	ReceivedAt      *time.Time           `gorm:"column:received_at"`
	ReceivedBy      *uuid.UUID           `gorm:"column:received_by;type:uuid"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TransferItem is one product line on a transfer.
type TransferItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransferID uuid.UUID `gorm:"column:transfer_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
}
