package models

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord holds the authoritative on-hand/reserved counts for one
// (product, warehouse) pair. Current quantity lives here; the ledger is a
// derived audit trail.
type StockRecord struct {
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;primaryKey"`
	OnHand      int       `gorm:"column:on_hand;not null;default:0"`
	Reserved    int       `gorm:"column:reserved;not null;default:0"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime"`
}

// Available is the quantity that can still be reserved or withdrawn.
func (s StockRecord) Available() int {
	available := s.OnHand - s.Reserved
	if available < 0 {
		return 0
	}
	return available
}
