package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Delivery is an outbound goods document; picking reserves stock and
// validating it removes the reserved quantities.
type Delivery struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Ref         string               `gorm:"column:ref;not null;uniqueIndex"`
	Customer    string               `gorm:"column:customer;not null"`
	WarehouseID uuid.UUID            `gorm:"column:warehouse_id;type:uuid;not null"`
	Status      enums.DeliveryStatus `gorm:"column:status;not null;default:draft"`
	Items       []DeliveryItem       `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	CreatedBy   uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	PickedAt    *time.Time           `gorm:"column:picked_at"`
	PackedAt    *time.Time           `gorm:"column:packed_at"`
	ValidatedAt *time.Time           `gorm:"column:validated_at"`
	ValidatedBy *uuid.UUID           `gorm:"column:validated_by;type:uuid"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryItem is one product line on a delivery.
type DeliveryItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryID uuid.UUID `gorm:"column:delivery_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
}
