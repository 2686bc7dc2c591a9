package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type warehouseIDs interface {
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       Repository
	tx         txRunner
	stock      stock.Repository
	warehouses warehouseIDs
	seedStock  bool
}

// CreateInput captures the data required to register a product.
type CreateInput struct {
	SKU          string            `json:"sku" validate:"required"`
	Name         string            `json:"name" validate:"required"`
	Unit         enums.ProductUnit `json:"unit" validate:"required"`
	Category     string            `json:"category"`
	ReorderLevel int               `json:"reorder_level" validate:"gte=0"`
	Description  string            `json:"description"`
}

// UpdateInput carries the mutable product fields; nil pointers leave the
// current value in place.
type UpdateInput struct {
	Name         *string            `json:"name"`
	Unit         *enums.ProductUnit `json:"unit"`
	Category     *string            `json:"category"`
	ReorderLevel *int               `json:"reorder_level"`
	Description  *string            `json:"description"`
}

// NewService builds a product service. When seedStock is set, creating a
// product also creates zero-quantity stock records at every active warehouse.
func NewService(repo Repository, tx txRunner, stockRepo stock.Repository, warehouses warehouseIDs, seedStock bool) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if warehouses == nil {
		return nil, fmt.Errorf("warehouses repository required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		stock:      stockRepo,
		warehouses: warehouses,
		seedStock:  seedStock,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
	}
	if input.ReorderLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
	}

	product := &models.Product{
		ID:           uuid.New(),
		SKU:          sku,
		Name:         strings.TrimSpace(input.Name),
		Unit:         input.Unit,
		Category:     strings.TrimSpace(input.Category),
		ReorderLevel: input.ReorderLevel,
		Description:  input.Description,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if !s.seedStock {
			return nil
		}
		ids, err := s.warehouses.ListActiveIDs(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouses")
		}
		stockTx := s.stock.WithTx(tx)
		for _, warehouseID := range ids {
			record := &models.StockRecord{ProductID: product.ID, WarehouseID: warehouseID}
			if err := stockTx.Create(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed stock record")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
		}
		product.Unit = *input.Unit
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
		}
		product.ReorderLevel = *input.ReorderLevel
	}
	if input.Description != nil {
		product.Description = *input.Description
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

// Delete removes the product and its empty stock records. A product with any
// quantity on hand anywhere cannot be deleted.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	stocked, err := s.stock.AnyOnHandByProduct(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock on hand")
	}
	if stocked {
		return pkgerrors.New(pkgerrors.CodeConflict, "product still has stock on hand")
	}

	if err := s.stock.DeleteEmptyByProduct(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete empty stock records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}
