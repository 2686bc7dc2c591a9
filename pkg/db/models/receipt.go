package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Receipt is an inbound goods document; validating it increases stock.
type Receipt struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Ref         string              `gorm:"column:ref;not null;uniqueIndex"`
	Supplier    string              `gorm:"column:supplier;not null"`
	WarehouseID uuid.UUID           `gorm:"column:warehouse_id;type:uuid;not null"`
	Status      enums.ReceiptStatus `gorm:"column:status;not null;default:draft"`
	Items       []ReceiptItem       `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
	CreatedBy   uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	ValidatedAt *time.Time          `gorm:"column:validated_at"`
	ValidatedBy *uuid.UUID          `gorm:"column:validated_by;type:uuid"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ReceiptItem is one product line on a receipt.
type ReceiptItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReceiptID uuid.UUID `gorm:"column:receipt_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
}
