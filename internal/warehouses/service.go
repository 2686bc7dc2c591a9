package warehouses

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/db/models"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productIDs interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service exposes warehouse operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Warehouse, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	List(ctx context.Context, filter ListFilter) ([]models.Warehouse, int64, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Warehouse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	stock     stock.Repository
	products  productIDs
	seedStock bool
}

// CreateInput captures the data required to register a warehouse.
type CreateInput struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address"`
	Capacity string `json:"capacity"`
}

// UpdateInput carries the mutable warehouse fields; nil pointers leave the
// current value in place.
type UpdateInput struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Capacity *string `json:"capacity"`
	IsActive *bool   `json:"is_active"`
}

// NewService builds a warehouse service. When seedStock is set, creating a
// warehouse also creates zero-quantity stock records for every product.
func NewService(repo Repository, tx txRunner, stockRepo stock.Repository, products productIDs, seedStock bool) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("warehouses repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		stock:     stockRepo,
		products:  products,
		seedStock: seedStock,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Warehouse, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	warehouse := &models.Warehouse{
		ID:       uuid.New(),
		Code:     code,
		Name:     strings.TrimSpace(input.Name),
		Address:  strings.TrimSpace(input.Address),
		Capacity: strings.TrimSpace(input.Capacity),
		IsActive: true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, warehouse); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "warehouse code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warehouse")
		}
		if !s.seedStock {
			return nil
		}
		ids, err := s.products.ListIDs(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
		}
		stockTx := s.stock.WithTx(tx)
		for _, productID := range ids {
			record := &models.StockRecord{ProductID: productID, WarehouseID: warehouse.ID}
			if err := stockTx.Create(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed stock record")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	warehouse, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	if warehouse == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
	}
	return warehouse, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Warehouse, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Warehouse, error) {
	warehouse, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		warehouse.Name = strings.TrimSpace(*input.Name)
	}
	if input.Address != nil {
		warehouse.Address = strings.TrimSpace(*input.Address)
	}
	if input.Capacity != nil {
		warehouse.Capacity = strings.TrimSpace(*input.Capacity)
	}
	if input.IsActive != nil {
		warehouse.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, warehouse); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update warehouse")
	}
	return warehouse, nil
}

// Delete removes the warehouse and its empty stock records. A warehouse
// holding any quantity on hand cannot be deleted.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	stocked, err := s.stock.AnyOnHandByWarehouse(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock on hand")
	}
	if stocked {
		return pkgerrors.New(pkgerrors.CodeConflict, "warehouse still holds stock")
	}

	if err := s.stock.DeleteEmptyByWarehouse(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete empty stock records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete warehouse")
	}
	return nil
}
