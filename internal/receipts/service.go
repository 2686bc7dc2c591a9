package receipts

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

// Service defines receipt document operations.
type Service interface {
	Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Receipt, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Receipt, int64, error)
	UpdateDraft(ctx context.Context, sc scope.Scope, id uuid.UUID, input UpdateInput) (*models.Receipt, error)
	Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Receipt, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   stock.Store
	ledger  ledger.Service
	alloc   sequence.Allocator
	metrics *metrics.MovementMetrics
}

// LineInput is one product line on a new receipt.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateInput captures the data required to open a receipt draft.
type CreateInput struct {
	Supplier    string      `json:"supplier" validate:"required"`
	WarehouseID uuid.UUID   `json:"warehouse_id" validate:"required"`
	Items       []LineInput `json:"items" validate:"required,min=1,dive"`
	CreatedBy   uuid.UUID   `json:"-"`
}

// UpdateInput edits a draft. Nil fields are left untouched; an empty item
// slice is rejected rather than treated as a clear.
type UpdateInput struct {
	Supplier *string     `json:"supplier"`
	Items    []LineInput `json:"items" validate:"omitempty,dive"`
}

// NewService builds a receipt service with the required dependencies.
func NewService(repo Repository, tx txRunner, stockStore stock.Store, ledgerSvc ledger.Service, alloc sequence.Allocator, movementMetrics *metrics.MovementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipts repository required")
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

func (s *service) Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Receipt, error) {
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is required")
	}
	if input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !sc.Allows(input.WarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouse outside caller scope")
	}

	receipt := &models.Receipt{
		ID:          uuid.New(),
		Supplier:    strings.TrimSpace(input.Supplier),
		WarehouseID: input.WarehouseID,
		Status:      enums.ReceiptStatusDraft,
		CreatedBy:   input.CreatedBy,
	}
	for _, line := range input.Items {
		receipt.Items = append(receipt.Items, models.ReceiptItem{
			ID:        uuid.New(),
			ReceiptID: receipt.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ref, err := s.alloc.WithTx(tx).NextRef(ctx, enums.MovementKindReceipt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate receipt reference")
		}
		receipt.Ref = ref
		return s.repo.WithTx(tx).Create(ctx, receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil || !sc.Allows(receipt.WarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
	}
	return receipt, nil
}

func (s *service) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Receipt, int64, error) {
	if sc.Empty {
		return []models.Receipt{}, 0, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	return s.repo.List(ctx, filter)
}

// UpdateDraft edits the supplier or the line items while the receipt has not
// been validated. The draft status is re-checked with a guarded update so a
// concurrent validation wins cleanly.
func (s *service) UpdateDraft(ctx context.Context, sc scope.Scope, id uuid.UUID, input UpdateInput) (*models.Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}
	if input.Supplier == nil && input.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Supplier != nil && strings.TrimSpace(*input.Supplier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier must not be empty")
	}
	if input.Items != nil {
		if err := validateLines(input.Items); err != nil {
			return nil, err
		}
	}

	var updated *models.Receipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		receipt, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}
		if receipt == nil || !sc.Allows(receipt.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		if receipt.Status != enums.ReceiptStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft receipts can be edited")
		}

		supplier := receipt.Supplier
		if input.Supplier != nil {
			supplier = strings.TrimSpace(*input.Supplier)
		}
		rows, err := repo.UpdateDraft(ctx, id, supplier, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update receipt draft")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft receipts can be edited")
		}
		receipt.Supplier = supplier

		if input.Items != nil {
			items := make([]models.ReceiptItem, 0, len(input.Items))
			for _, line := range input.Items {
				items = append(items, models.ReceiptItem{
					ID:        uuid.New(),
					ReceiptID: receipt.ID,
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
				})
			}
			if err := repo.ReplaceItems(ctx, receipt.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace receipt items")
			}
			receipt.Items = items
		}

		updated = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Validate posts the receipt: every line increases stock at the target
// warehouse and gains a ledger entry, atomically with the status claim. The
// lines are read after the claim, whose row write orders against UpdateDraft's
// guarded update, so a concurrent draft edit can never validate stale lines.
func (s *service) Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id is required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var validated *models.Receipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.ReceiptStatusDraft, enums.ReceiptStatusValidated, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim receipt status")
		}

		receipt, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}
		if receipt == nil || !sc.Allows(receipt.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt already validated")
		}

		stockTx := s.stock.WithTx(tx)
		ledgerTx := s.ledger.WithTx(tx)
		for _, item := range receipt.Items {
			mutation, err := stockTx.Increase(ctx, item.ProductID, receipt.WarehouseID, item.Quantity)
			if err != nil {
				return err
			}
			if mutation.FirstTouch {
				continue
			}
			if _, err := ledgerTx.Append(ctx, ledger.AppendInput{
				ProductID:      item.ProductID,
				WarehouseID:    receipt.WarehouseID,
				Change:         item.Quantity,
				Kind:           enums.MovementKindReceipt,
				DocumentID:     receipt.ID,
				DocumentRef:    receipt.Ref,
				QuantityBefore: mutation.Before,
				QuantityAfter:  mutation.After,
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
			s.metrics.IncLedgerEntries(1)
		}

		receipt.Status = enums.ReceiptStatusValidated
		receipt.ValidatedAt = &now
		receipt.ValidatedBy = &actorID
		validated = receipt
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindReceipt.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindReceipt.String(), enums.ReceiptStatusValidated.String())
	return validated, nil
}

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for _, line := range items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item product id is required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
	}
	return nil
}

func rejectionReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
