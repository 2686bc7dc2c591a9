package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Product represents a catalog item tracked across warehouses.
type Product struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SKU          string            `gorm:"column:sku;not null;uniqueIndex"`
	Name         string            `gorm:"column:name;not null"`
	Unit         enums.ProductUnit `gorm:"column:unit;not null"`
	Category     string            `gorm:"column:category;not null"`
	ReorderLevel int               `gorm:"column:reorder_level;not null;default:0"`
	Description  string            `gorm:"column:description;not null;default:''"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
