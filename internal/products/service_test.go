package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	created *models.Product
	product *models.Product
	updated *models.Product
	deleted []uuid.UUID
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, product *models.Product) error {
	s.created = product
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.product, nil
}

func (s *stubRepo) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return nil, nil
}

func (s *stubRepo) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *stubRepo) Update(ctx context.Context, product *models.Product) error {
	s.updated = product
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubStockRepo struct {
	onHand       bool
	seeded       []*models.StockRecord
	emptyDeletes []uuid.UUID
}

func (s *stubStockRepo) WithTx(tx *gorm.DB) stock.Repository { return s }

func (s *stubStockRepo) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error) {
	return nil, nil
}

func (s *stubStockRepo) Create(ctx context.Context, record *models.StockRecord) error {
	s.seeded = append(s.seeded, record)
	return nil
}

func (s *stubStockRepo) List(ctx context.Context, filter stock.ListFilter) ([]models.StockRecord, int64, error) {
	return nil, 0, nil
}

func (s *stubStockRepo) AddOnHand(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) SetOnHand(ctx context.Context, productID, warehouseID uuid.UUID, expected, counted int) (int64, error) {
	return 0, nil
}

func (s *stubStockRepo) DeleteEmptyByProduct(ctx context.Context, productID uuid.UUID) error {
	s.emptyDeletes = append(s.emptyDeletes, productID)
	return nil
}

func (s *stubStockRepo) DeleteEmptyByWarehouse(ctx context.Context, warehouseID uuid.UUID) error {
	return nil
}

func (s *stubStockRepo) AnyOnHandByProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	return s.onHand, nil
}

func (s *stubStockRepo) AnyOnHandByWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubStockRepo) ListBelowReorder(ctx context.Context) ([]stock.LowStockRow, error) {
	return nil, nil
}

type stubWarehouseIDs struct {
	ids []uuid.UUID
}

func (s *stubWarehouseIDs) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

func newTestService(t *testing.T, repo *stubRepo, stockRepo *stubStockRepo, warehouses *stubWarehouseIDs, seedStock bool) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, stockRepo, warehouses, seedStock)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreate_NormalizesSKUAndSeedsStock(t *testing.T) {
	repo := &stubRepo{}
	stockRepo := &stubStockRepo{}
	warehouses := &stubWarehouseIDs{ids: []uuid.UUID{uuid.New(), uuid.New()}}
	svc := newTestService(t, repo, stockRepo, warehouses, true)

	product, err := svc.Create(context.Background(), CreateInput{
		SKU:  " wid-001 ",
		Name: "Widget",
		Unit: enums.ProductUnitPieces,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.SKU != "WID-001" {
		t.Fatalf("expected normalized sku, got %q", product.SKU)
	}
	if len(stockRepo.seeded) != 2 {
		t.Fatalf("expected stock seeded at both warehouses, got %d", len(stockRepo.seeded))
	}
	for _, record := range stockRepo.seeded {
		if record.OnHand != 0 || record.Reserved != 0 {
			t.Fatalf("seeded record must be empty, got %+v", record)
		}
	}
}

func TestCreate_NoSeedingWhenDisabled(t *testing.T) {
	stockRepo := &stubStockRepo{}
	warehouses := &stubWarehouseIDs{ids: []uuid.UUID{uuid.New()}}
	svc := newTestService(t, &stubRepo{}, stockRepo, warehouses, false)

	if _, err := svc.Create(context.Background(), CreateInput{
		SKU:  "WID-002",
		Name: "Widget",
		Unit: enums.ProductUnitPieces,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(stockRepo.seeded) != 0 {
		t.Fatalf("expected no seeding, got %d records", len(stockRepo.seeded))
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStockRepo{}, &stubWarehouseIDs{}, false)

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"missing sku", CreateInput{Name: "Widget", Unit: enums.ProductUnitPieces}},
		{"missing name", CreateInput{SKU: "WID-001", Unit: enums.ProductUnitPieces}},
		{"invalid unit", CreateInput{SKU: "WID-001", Name: "Widget", Unit: "crate"}},
		{"negative reorder level", CreateInput{SKU: "WID-001", Name: "Widget", Unit: enums.ProductUnitPieces, ReorderLevel: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestUpdate_AppliesPartialChanges(t *testing.T) {
	product := &models.Product{
		ID:           uuid.New(),
		SKU:          "WID-001",
		Name:         "Widget",
		Unit:         enums.ProductUnitPieces,
		ReorderLevel: 5,
	}
	repo := &stubRepo{product: product}
	svc := newTestService(t, repo, &stubStockRepo{}, &stubWarehouseIDs{}, false)

	name := "Widget Mk II"
	level := 12
	updated, err := svc.Update(context.Background(), product.ID, UpdateInput{Name: &name, ReorderLevel: &level})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Widget Mk II" || updated.ReorderLevel != 12 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.SKU != "WID-001" {
		t.Fatalf("sku must not change, got %q", updated.SKU)
	}
	if repo.updated == nil {
		t.Fatal("update not persisted")
	}
}

func TestDelete_RefusedWhileStocked(t *testing.T) {
	product := &models.Product{ID: uuid.New(), SKU: "WID-001"}
	repo := &stubRepo{product: product}
	stockRepo := &stubStockRepo{onHand: true}
	svc := newTestService(t, repo, stockRepo, &stubWarehouseIDs{}, false)

	err := svc.Delete(context.Background(), product.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("product must not be deleted while stocked")
	}
}

func TestDelete_RemovesEmptyStockRecords(t *testing.T) {
	product := &models.Product{ID: uuid.New(), SKU: "WID-001"}
	repo := &stubRepo{product: product}
	stockRepo := &stubStockRepo{}
	svc := newTestService(t, repo, stockRepo, &stubWarehouseIDs{}, false)

	if err := svc.Delete(context.Background(), product.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(stockRepo.emptyDeletes) != 1 || stockRepo.emptyDeletes[0] != product.ID {
		t.Fatalf("expected empty stock records removed, got %v", stockRepo.emptyDeletes)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("product not deleted")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStockRepo{}, &stubWarehouseIDs{}, false)

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
