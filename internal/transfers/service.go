package transfers

import (
	"context"
	"fmt"
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

// Service defines transfer document operations.
type Service interface {
	Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Transfer, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Transfer, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Transfer, int64, error)
	Dispatch(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Transfer, error)
	Receive(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Transfer, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   stock.Store
	ledger  ledger.Service
	alloc   sequence.Allocator
	metrics *metrics.MovementMetrics
}

// LineInput is one product line on a new transfer.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateInput captures the data required to open a transfer draft.
type CreateInput struct {
	FromWarehouseID uuid.UUID   `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   uuid.UUID   `json:"to_warehouse_id" validate:"required"`
	Items           []LineInput `json:"items" validate:"required,min=1,dive"`
	CreatedBy       uuid.UUID   `json:"-"`
}

// NewService builds a transfer service with the required dependencies.
func NewService(repo Repository, tx txRunner, stockStore stock.Store, ledgerSvc ledger.Service, alloc sequence.Allocator, movementMetrics *metrics.MovementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transfers repository required")
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

func (s *service) Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Transfer, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
	}
	if input.FromWarehouseID == uuid.Nil || input.ToWarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both warehouses are required")
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination warehouse must differ")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !sc.AllowsEither(input.FromWarehouseID, input.ToWarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "warehouses outside caller scope")
	}

	transfer := &models.Transfer{
		ID:              uuid.New(),
		FromWarehouseID: input.FromWarehouseID,
		ToWarehouseID:   input.ToWarehouseID,
		Status:          enums.TransferStatusDraft,
		CreatedBy:       input.CreatedBy,
	}
	for _, line := range input.Items {
		transfer.Items = append(transfer.Items, models.TransferItem{
			ID:         uuid.New(),
			TransferID: transfer.ID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ref, err := s.alloc.WithTx(tx).NextRef(ctx, enums.MovementKindTransfer)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate transfer reference")
		}
		transfer.Ref = ref
		return s.repo.WithTx(tx).Create(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

func (s *service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Transfer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	transfer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil || !sc.AllowsEither(transfer.FromWarehouseID, transfer.ToWarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	return transfer, nil
}

func (s *service) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Transfer, int64, error) {
	if sc.Empty {
		return []models.Transfer{}, 0, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	return s.repo.List(ctx, filter)
}

// Dispatch withdraws every line from the source warehouse and posts negative
// ledger entries. Reserved quantities at the source are never consumed by a
// transfer, so the withdraw honors existing holds. Only callers scoped to the
// source warehouse may dispatch.
func (s *service) Dispatch(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Transfer, error) {
	if err := checkIdentity(id, actorID); err != nil {
		return nil, err
	}

	var dispatched *models.Transfer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		transfer, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer")
		}
		if transfer == nil || !sc.AllowsEither(transfer.FromWarehouseID, transfer.ToWarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		if !sc.Allows(transfer.FromWarehouseID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "source warehouse outside caller scope")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.TransferStatusDraft, enums.TransferStatusDispatched, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim transfer status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transfer cannot be dispatched in its current status")
		}

		stockTx := s.stock.WithTx(tx)
		ledgerTx := s.ledger.WithTx(tx)
		for _, item := range transfer.Items {
			mutation, err := stockTx.Withdraw(ctx, item.ProductID, transfer.FromWarehouseID, item.Quantity)
			if err != nil {
				return err
			}
			if _, err := ledgerTx.Append(ctx, ledger.AppendInput{
				ProductID:      item.ProductID,
				WarehouseID:    transfer.FromWarehouseID,
				Change:         -item.Quantity,
				Kind:           enums.MovementKindTransfer,
				DocumentID:     transfer.ID,
				DocumentRef:    transfer.Ref,
				QuantityBefore: mutation.Before,
				QuantityAfter:  mutation.After,
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
			s.metrics.IncLedgerEntries(1)
		}

		transfer.Status = enums.TransferStatusDispatched
		transfer.DispatchedAt = &now
		dispatched = transfer
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindTransfer.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindTransfer.String(), enums.TransferStatusDispatched.String())
	return dispatched, nil
}

// Receive lands every line at the destination warehouse with positive ledger
// entries. A line whose stock record did not exist before is created and still
// gains an entry with a zero starting quantity, so replaying the destination's
// ledger reproduces its on-hand. Only callers scoped to the destination
// warehouse may receive.
func (s *service) Receive(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Transfer, error) {
	if err := checkIdentity(id, actorID); err != nil {
		return nil, err
	}

	var received *models.Transfer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		transfer, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer")
		}
		if transfer == nil || !sc.AllowsEither(transfer.FromWarehouseID, transfer.ToWarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		if !sc.Allows(transfer.ToWarehouseID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "destination warehouse outside caller scope")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.TransferStatusDispatched, enums.TransferStatusReceived, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim transfer status")
		}
		if rows == 0 {
			if transfer.Status == enums.TransferStatusReceived {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "transfer already received")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transfer cannot be received in its current status")
		}

		stockTx := s.stock.WithTx(tx)
		ledgerTx := s.ledger.WithTx(tx)
		for _, item := range transfer.Items {
			mutation, err := stockTx.Increase(ctx, item.ProductID, transfer.ToWarehouseID, item.Quantity)
			if err != nil {
				return err
			}
			if _, err := ledgerTx.Append(ctx, ledger.AppendInput{
				ProductID:      item.ProductID,
				WarehouseID:    transfer.ToWarehouseID,
				Change:         item.Quantity,
				Kind:           enums.MovementKindTransfer,
				DocumentID:     transfer.ID,
				DocumentRef:    transfer.Ref,
				QuantityBefore: mutation.Before,
				QuantityAfter:  mutation.After,
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
			s.metrics.IncLedgerEntries(1)
		}

		transfer.Status = enums.TransferStatusReceived
		transfer.ReceivedAt = &now
		transfer.ReceivedBy = &actorID
		received = transfer
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindTransfer.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindTransfer.String(), enums.TransferStatusReceived.String())
	return received, nil
}

func checkIdentity(id, actorID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer id is required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func rejectionReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
