package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// LedgerEntry records one immutable stock change with its before/after
// quantities and the movement document that caused it. Entries are never
// updated or deleted.
type LedgerEntry struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index:idx_ledger_stock,priority:1"`
	WarehouseID    uuid.UUID          `gorm:"column:warehouse_id;type:uuid;not null;index:idx_ledger_stock,priority:2"`
	Change         int                `gorm:"column:change;not null"`
	Kind           enums.MovementKind `gorm:"column:kind;not null;index:idx_ledger_document,priority:1"`
	DocumentID     uuid.UUID          `gorm:"column:document_id;type:uuid;not null;index:idx_ledger_document,priority:2"`
	DocumentRef    string             `gorm:"column:document_ref;not null"`
	QuantityBefore int                `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                `gorm:"column:quantity_after;not null"`
	CreatedBy      uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime;index:idx_ledger_stock,priority:3"`
}
