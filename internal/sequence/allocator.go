package sequence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

var refFormats = map[enums.MovementKind]string{
	enums.MovementKindReceipt:    "WH/IN/%04d",
	enums.MovementKindDelivery:   "WH/OUT/%04d",
	enums.MovementKindTransfer:   "WH/INT/%04d",
	enums.MovementKindAdjustment: "ADJ/%04d",
}

// Allocator hands out gapless-enough reference numbers per movement kind.
// The counter row is advanced with an UPDATE so two concurrent creates can
// never read the same value; counting existing documents would.
type Allocator interface {
	WithTx(tx *gorm.DB) Allocator
	NextRef(ctx context.Context, kind enums.MovementKind) (string, error)
}

type allocator struct {
	db *gorm.DB
}

// NewAllocator returns a reference allocator bound to the provided database.
func NewAllocator(conn *gorm.DB) (Allocator, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	return &allocator{db: conn}, nil
}

func (a *allocator) WithTx(tx *gorm.DB) Allocator {
	if tx == nil {
		return a
	}
	return &allocator{db: tx}
}

func (a *allocator) NextRef(ctx context.Context, kind enums.MovementKind) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid movement kind %q", kind)
	}

	value, err := a.next(ctx, kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(refFormats[kind], value), nil
}

func (a *allocator) next(ctx context.Context, kind enums.MovementKind) (int64, error) {
	conn := a.db.WithContext(ctx)

	result := conn.Model(&models.RefSequence{}).
		Where("kind = ?", kind.String()).
		UpdateColumn("last_value", gorm.Expr("last_value + 1"))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// Counter row missing; migrations seed them but a fresh kind starts at 1.
		if err := conn.Create(&models.RefSequence{Kind: kind.String(), LastValue: 1}).Error; err != nil {
			if !db.IsUniqueViolation(err, "") {
				return 0, err
			}
			retry := conn.Model(&models.RefSequence{}).
				Where("kind = ?", kind.String()).
				UpdateColumn("last_value", gorm.Expr("last_value + 1"))
			if retry.Error != nil {
				return 0, retry.Error
			}
		} else {
			return 1, nil
		}
	}

	var seq models.RefSequence
	if err := conn.Where("kind = ?", kind.String()).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
