package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.StockRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := NewStore(NewRepository(conn))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestIncrease_FirstTouchCreatesRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	mutation, err := store.Increase(ctx, productID, warehouseID, 10)
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if !mutation.FirstTouch {
		t.Fatal("expected first touch on missing record")
	}
	if mutation.Before != 0 || mutation.After != 10 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}

	mutation, err = store.Increase(ctx, productID, warehouseID, 5)
	if err != nil {
		t.Fatalf("second increase: %v", err)
	}
	if mutation.FirstTouch {
		t.Fatal("second increase must not be a first touch")
	}
	if mutation.Before != 10 || mutation.After != 15 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}
}

func TestReserve_FailsWhenAvailableTooLow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	if _, err := store.Increase(ctx, productID, warehouseID, 10); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if err := store.Reserve(ctx, productID, warehouseID, 8); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err := store.Reserve(ctx, productID, warehouseID, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientAvailable {
		t.Fatalf("expected insufficient available, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["available"] != 2 || details["required"] != 5 {
		t.Fatalf("unexpected details %v", details)
	}

	record, err := store.Get(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Reserved != 8 {
		t.Fatalf("failed reserve must not change holds, got %d", record.Reserved)
	}
}

func TestReserve_MissingRecordReportsZeroAvailable(t *testing.T) {
	store := newTestStore(t)
	err := store.Reserve(context.Background(), uuid.New(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientAvailable {
		t.Fatalf("expected insufficient available, got %v", err)
	}
}

func TestRelease_BelowZeroIsInvariantViolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	if _, err := store.Increase(ctx, productID, warehouseID, 4); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if err := store.Reserve(ctx, productID, warehouseID, 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err := store.Release(ctx, productID, warehouseID, 5)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvariant {
		t.Fatalf("expected invariant violation, got %v", err)
	}

	if err := store.Release(ctx, productID, warehouseID, 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	record, err := store.Get(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Reserved != 0 {
		t.Fatalf("expected reserved 0, got %d", record.Reserved)
	}
}

func TestWithdraw_RespectsHolds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	if _, err := store.Increase(ctx, productID, warehouseID, 10); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if err := store.Reserve(ctx, productID, warehouseID, 6); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// Only 4 available even though 10 are on hand.
	if _, err := store.Withdraw(ctx, productID, warehouseID, 5); pkgerrors.As(err) == nil {
		t.Fatalf("expected withdraw beyond available to fail, got %v", err)
	}

	mutation, err := store.Withdraw(ctx, productID, warehouseID, 4)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if mutation.Before != 10 || mutation.After != 6 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}
}

func TestDecreaseAndUnreserve_AllOrNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	if _, err := store.Increase(ctx, productID, warehouseID, 10); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if err := store.Reserve(ctx, productID, warehouseID, 8); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	mutation, err := store.DecreaseAndUnreserve(ctx, productID, warehouseID, 8)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if mutation.Before != 10 || mutation.After != 2 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}

	record, err := store.Get(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.OnHand != 2 || record.Reserved != 0 {
		t.Fatalf("unexpected record %+v", record)
	}

	_, err = store.DecreaseAndUnreserve(ctx, productID, warehouseID, 3)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	record, err = store.Get(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("get after failure: %v", err)
	}
	if record.OnHand != 2 || record.Reserved != 0 {
		t.Fatalf("failed decrease must leave state unchanged, got %+v", record)
	}
}

func TestSetCounted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	// First touch creates the record with the counted quantity.
	mutation, err := store.SetCounted(ctx, productID, warehouseID, 17)
	if err != nil {
		t.Fatalf("set counted: %v", err)
	}
	if !mutation.FirstTouch || mutation.After != 17 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}

	mutation, err = store.SetCounted(ctx, productID, warehouseID, 20)
	if err != nil {
		t.Fatalf("set counted: %v", err)
	}
	if mutation.FirstTouch || mutation.Before != 17 || mutation.After != 20 {
		t.Fatalf("unexpected mutation %+v", mutation)
	}
}

func TestSetCounted_RejectsCountBelowReserved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	if _, err := store.Increase(ctx, productID, warehouseID, 10); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if err := store.Reserve(ctx, productID, warehouseID, 6); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_, err := store.SetCounted(ctx, productID, warehouseID, 4)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected rejection when count is below reserved, got %v", err)
	}
}

func TestGetOrCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	productID, warehouseID := uuid.New(), uuid.New()

	record, created, err := store.GetOrCreate(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || record.OnHand != 0 || record.Reserved != 0 {
		t.Fatalf("unexpected fresh record created=%v %+v", created, record)
	}

	again, created, err := store.GetOrCreate(ctx, productID, warehouseID)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if created {
		t.Fatal("expected existing record on second call")
	}
	if again.ProductID != productID || again.WarehouseID != warehouseID {
		t.Fatalf("unexpected record %+v", again)
	}
}
