package deliveries

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

// Service defines delivery document operations.
type Service interface {
	Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Delivery, error)
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Delivery, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Delivery, int64, error)
	Pick(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error)
	Pack(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error)
	Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   stock.Store
	ledger  ledger.Service
	alloc   sequence.Allocator
	metrics *metrics.MovementMetrics
}

// LineInput is one product line on a new delivery.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateInput captures the data required to open a delivery draft.
type CreateInput struct {
	Customer    string      `json:"customer" validate:"required"`
	WarehouseID uuid.UUID   `json:"warehouse_id" validate:"required"`
	Items       []LineInput `json:"items" validate:"required,min=1,dive"`
	CreatedBy   uuid.UUID   `json:"-"`
}

// NewService builds a delivery service with the required dependencies.
func NewService(repo Repository, tx txRunner, stockStore stock.Store, ledgerSvc ledger.Service, alloc sequence.Allocator, movementMetrics *metrics.MovementMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
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

func (s *service) Create(ctx context.Context, sc scope.Scope, input CreateInput) (*models.Delivery, error) {
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
	if strings.TrimSpace(input.Customer) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
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

	delivery := &models.Delivery{
		ID:          uuid.New(),
		Customer:    strings.TrimSpace(input.Customer),
		WarehouseID: input.WarehouseID,
		Status:      enums.DeliveryStatusDraft,
		CreatedBy:   input.CreatedBy,
	}
	for _, line := range input.Items {
		delivery.Items = append(delivery.Items, models.DeliveryItem{
			ID:         uuid.New(),
			DeliveryID: delivery.ID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ref, err := s.alloc.WithTx(tx).NextRef(ctx, enums.MovementKindDelivery)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate delivery reference")
		}
		delivery.Ref = ref
		return s.repo.WithTx(tx).Create(ctx, delivery)
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

func (s *service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*models.Delivery, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
	}
	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if delivery == nil || !sc.Allows(delivery.WarehouseID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
	}
	return delivery, nil
}

func (s *service) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.Delivery, int64, error) {
	if sc.Empty {
		return []models.Delivery{}, 0, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	return s.repo.List(ctx, filter)
}

// Pick places holds for every line. The transaction rolls the holds and the
// status claim back together when any line lacks availability, so a failed
// pick leaves the document in Draft with no partial reservations.
func (s *service) Pick(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error) {
	if err := checkIdentity(id, actorID); err != nil {
		return nil, err
	}

	var picked *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery == nil || !sc.Allows(delivery.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.DeliveryStatusDraft, enums.DeliveryStatusPicked, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery cannot be picked in its current status")
		}

		stockTx := s.stock.WithTx(tx)
		for _, item := range delivery.Items {
			if err := stockTx.Reserve(ctx, item.ProductID, delivery.WarehouseID, item.Quantity); err != nil {
				return err
			}
		}

		delivery.Status = enums.DeliveryStatusPicked
		delivery.PickedAt = &now
		picked = delivery
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindDelivery.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindDelivery.String(), enums.DeliveryStatusPicked.String())
	return picked, nil
}

// Pack is a pure status transition with no stock effect.
func (s *service) Pack(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error) {
	if err := checkIdentity(id, actorID); err != nil {
		return nil, err
	}

	var packed *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery == nil || !sc.Allows(delivery.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.DeliveryStatusPicked, enums.DeliveryStatusPacked, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery cannot be packed in its current status")
		}

		delivery.Status = enums.DeliveryStatusPacked
		delivery.PackedAt = &now
		packed = delivery
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindDelivery.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindDelivery.String(), enums.DeliveryStatusPacked.String())
	return packed, nil
}

// Validate posts the delivery: every line removes its reserved quantity from
// stock and gains a negative ledger entry.
func (s *service) Validate(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error) {
	if err := checkIdentity(id, actorID); err != nil {
		return nil, err
	}

	var validated *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery == nil || !sc.Allows(delivery.WarehouseID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}

		now := time.Now().UTC()
		rows, err := repo.ClaimStatus(ctx, id, enums.DeliveryStatusPacked, enums.DeliveryStatusValidated, &actorID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery status")
		}
		if rows == 0 {
			if delivery.Status == enums.DeliveryStatusValidated {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already validated")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery cannot be validated in its current status")
		}

		stockTx := s.stock.WithTx(tx)
		ledgerTx := s.ledger.WithTx(tx)
		for _, item := range delivery.Items {
			mutation, err := stockTx.DecreaseAndUnreserve(ctx, item.ProductID, delivery.WarehouseID, item.Quantity)
			if err != nil {
				return err
			}
			if _, err := ledgerTx.Append(ctx, ledger.AppendInput{
				ProductID:      item.ProductID,
				WarehouseID:    delivery.WarehouseID,
				Change:         -item.Quantity,
				Kind:           enums.MovementKindDelivery,
				DocumentID:     delivery.ID,
				DocumentRef:    delivery.Ref,
				QuantityBefore: mutation.Before,
				QuantityAfter:  mutation.After,
				CreatedBy:      actorID,
			}); err != nil {
				return err
			}
			s.metrics.IncLedgerEntries(1)
		}

		delivery.Status = enums.DeliveryStatusValidated
		delivery.ValidatedAt = &now
		delivery.ValidatedBy = &actorID
		validated = delivery
		return nil
	})
	if err != nil {
		s.metrics.IncRejection(enums.MovementKindDelivery.String(), rejectionReason(err))
		return nil, err
	}
	s.metrics.IncTransition(enums.MovementKindDelivery.String(), enums.DeliveryStatusValidated.String())
	return validated, nil
}

func checkIdentity(id, actorID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
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
