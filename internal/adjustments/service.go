package adjustments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/ledger"
	"github.com/wareline/wareline-backend/internal/sequence"
	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/metrics"
	"github.com/wareline/wareline-backend/pkg/scope"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines stock adjustment operations.
type Service interface {
	Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Adjustment, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Adjustment, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Adjustment, int64, error)
	Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Adjustment, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   stock.Store
	ledger  ledger.Service
	alloc   sequence.Allocator
	metrics *metrics.MovementMetrics
}

// CreateInput captures a physical count against one (product, warehouse) pair.
type CreateInput struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	CountedQty  int       `json:"counted_qty" validate:"gte=0"`
	Reason      string    `json:"reason" validate:"required"`
	CreatedBy   uuid.UUID `json:"-"`
}

// NewService builds an adjustment service with the required dependencies.
func NewService(repo Repository, tx txRunner, stockStore stock.Store, ledgerSvc ledger.Service, alloc sequence.Allocator, movementMetrics *metrics.MovementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("adjustments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stockStore == nil {
		return nil, fmt.Errorf("stock store required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if alloc == nil {
		return nil, fmt.Errorf("reference allocator required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		stock:   stockStore,
		ledger:  ledgerSvc,
		alloc:   alloc,
		metrics: movementMetrics,
	}, nil
}

// Create snapshots the recorded quantity at creation time. Difference is fixed
// here and never recomputed, even if stock moves before validation.
func (s *service) Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Adjustment, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	if input.CountedQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted quantity cannot be negative")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !sc.Allows(input.WarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouse outside caller scope")
	}

	previous := 0
	record, err := s.stock.Get(ctx, input.ProductID, input.WarehouseID)
	if err != nil {
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return nil, err
		}
	}
	if record != nil {
		previous = record.OnHand
	}

	adjustment := &models.Adjustment{
		ID:          uuid.New(),
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		PreviousQty: previous,
		CountedQty:  input.CountedQty,
		Difference:  input.CountedQty - previous,
		Reason:      strings.TrimSpace(input.Reason),
		Status:      enums.AdjustmentStatusDraft,
		CreatedBy:   input.CreatedBy,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ref, err := s.alloc.WithTx(tx).NextRef(ctx, enums.MovementKindAdjustment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate adjustment reference")
		}
		adjustment.Ref = ref
		return s.repo.WithTx(tx).Create(ctx, adjustment)
	})
	if err != nil {
		return nil, err
	}
	return adjustment, nil
}

func (s *service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Adjustment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
	}
	adjustment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if adjustment == nil || !sc.Allows(adjustment.WarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "adjustment not found")
	}
	return adjustment, nil
}

func (s *service) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Adjustment, int64, error) {
	if sc.Empty {
		return []models.Adjustment{}, 0, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	return s.repo.List(ctx, filter)
}

// Validate sets on-hand to the counted quantity. The ledger change is computed
// against the quantity at validation time rather than the creation-time
// snapshot, so replaying the ledger still reproduces on-hand when stock moved
// between count and validation. A count for a product never stocked before
// creates the record without a ledger entry.
func (s *service) Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Adjustment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var validated *models.Adjustment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		adjustment, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load adjustment")
		}
		if adjustment == nil || !sc.Allows(adjustment.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "adjustment not found")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.AdjustmentStatusDraft, enums.AdjustmentStatusValidated, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim adjustment status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "adjustment already validated")
		}

		mutation, err := s.stock.WithTx(tx).SetCounted(ctx, adjustment.ProductID, adjustment.WarehouseID, adjustment.CountedQty)
		if err != nil {
			return err
		}
		if change := mutation.After - mutation.Before; !mutation.FirstTouch && change != 0 {
			if _, err := s.ledger.WithTx(tx).Append(ctx, ledger.AppendInput{
				ProductID:      adjustment.ProductID,
				WarehouseID:    adjustment.WarehouseID,
				Change:         change,
				Kind:           enums.MovementKindAdjustment,
				DocumentID:     adjustment.ID,
				DocumentRef:    adjustment.Ref,
				QuantityBefore: mutation.Before,
				QuantityAfter:  mutation.After,
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
			s.metrics.IncLedgerEntries(1)
		}

		adjustment.Status = enums.AdjustmentStatusValidated
		adjustment.ValidatedAt = &now
		adjustment.ValidatedBy = &actorID
		validated = adjustment
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindAdjustment.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindAdjustment.String(), enums.AdjustmentStatusValidated.String())
	return validated, nil
}

func rejectionReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
