package deliveries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/ledger"
	"github.com/wareline/wareline-backend/internal/sequence"
	"github.com/wareline/wareline-backend/internal/stock"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/scope"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	created  *models.Delivery
	delivery *models.Delivery
	claimed  int64
	claims   []enums.DeliveryStatus
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, delivery *models.Delivery) error {
	s.created = delivery
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	return s.delivery, nil
}

func (s *stubRepo) List(ctx context.Context, filter ListFilter) ([]models.Delivery, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.DeliveryStatus, actorID *uuid.UUID, at time.Time) (int64, error) {
	s.claims = append(s.claims, to)
	return s.claimed, nil
}

type stubStock struct {
	mutations  map[uuid.UUID]stock.Mutation
	reserved   []int
	reserveErr error
	decreased  []int
}

func (s *stubStock) WithTx(tx *gorm.DB) stock.Store { return s }

func (s *stubStock) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error) {
	return nil, nil
}

func (s *stubStock) GetOrCreate(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, bool, error) {
	return nil, false, nil
}

func (s *stubStock) List(ctx context.Context, sc scope.Scope, filter stock.ListFilter) ([]models.StockRecord, int64, error) {
	return nil, 0, nil
}

func (s *stubStock) Increase(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (stock.Mutation, error) {
	return stock.Mutation{}, nil
}

func (s *stubStock) Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, qty)
	return nil
}

func (s *stubStock) Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	return nil
}

func (s *stubStock) Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (stock.Mutation, error) {
	return stock.Mutation{}, nil
}

func (s *stubStock) DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (stock.Mutation, error) {
	s.decreased = append(s.decreased, qty)
	return s.mutations[productID], nil
}

func (s *stubStock) SetCounted(ctx context.Context, productID, warehouseID uuid.UUID, counted int) (stock.Mutation, error) {
	return stock.Mutation{}, nil
}

type stubLedger struct {
	appended []ledger.AppendInput
}

func (s *stubLedger) WithTx(tx *gorm.DB) ledger.Service { return s }

func (s *stubLedger) Append(ctx context.Context, input ledger.AppendInput) (*models.LedgerEntry, error) {
	s.appended = append(s.appended, input)
	return &models.LedgerEntry{}, nil
}

func (s *stubLedger) List(ctx context.Context, sc scope.Scope, filter ledger.ListFilter) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (s *stubLedger) ListByDocument(ctx context.Context, kind enums.MovementKind, documentID uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

type stubAllocator struct {
	ref string
}

func (s *stubAllocator) WithTx(tx *gorm.DB) sequence.Allocator { return s }

func (s *stubAllocator) NextRef(ctx context.Context, kind enums.MovementKind) (string, error) {
	return s.ref, nil
}

func newTestService(t *testing.T, repo *stubRepo, stockStore *stubStock, ledgerSvc *stubLedger, ref string) Service {
	t.Helper()
	if stockStore.mutations == nil {
		stockStore.mutations = map[uuid.UUID]stock.Mutation{}
	}
	svc, err := NewService(repo, stubTxRunner{}, stockStore, ledgerSvc, &stubAllocator{ref: ref}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func draftDelivery(warehouseID uuid.UUID, items ...models.DeliveryItem) *models.Delivery {
	return &models.Delivery{
		ID:          uuid.New(),
		Ref:         "WH/OUT/0003",
		Customer:    "Northside Retail",
		WarehouseID: warehouseID,
		Status:      enums.DeliveryStatusDraft,
		Items:       items,
	}
}

func TestCreate_AllocatesReferenceAndPersistsDraft(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/OUT/0011")

	input := CreateInput{
		Customer:    "Northside Retail",
		WarehouseID: uuid.New(),
		Items:       []LineInput{{ProductID: uuid.New(), Quantity: 4}},
		CreatedBy:   uuid.New(),
	}

	delivery, err := svc.Create(context.Background(), scope.Scope{}, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if delivery.Ref != "WH/OUT/0011" {
		t.Fatalf("expected allocated ref, got %q", delivery.Ref)
	}
	if delivery.Status != enums.DeliveryStatusDraft {
		t.Fatalf("expected draft status, got %s", delivery.Status)
	}
	if repo.created == nil || len(repo.created.Items) != 1 {
		t.Fatalf("expected delivery persisted with items, got %+v", repo.created)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStock{}, &stubLedger{}, "WH/OUT/0001")
	warehouseID := uuid.New()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"missing customer", CreateInput{WarehouseID: warehouseID, Items: []LineInput{{ProductID: uuid.New(), Quantity: 1}}, CreatedBy: uuid.New()}},
		{"no items", CreateInput{Customer: "North", WarehouseID: warehouseID, CreatedBy: uuid.New()}},
		{"non-positive quantity", CreateInput{Customer: "North", WarehouseID: warehouseID, Items: []LineInput{{ProductID: uuid.New(), Quantity: -1}}, CreatedBy: uuid.New()}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), scope.Scope{}, tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestPick_ReservesEveryLine(t *testing.T) {
	warehouseID := uuid.New()
	delivery := draftDelivery(warehouseID,
		models.DeliveryItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 4},
		models.DeliveryItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2},
	)
	repo := &stubRepo{delivery: delivery, claimed: 1}
	stockStore := &stubStock{}
	svc := newTestService(t, repo, stockStore, &stubLedger{}, "WH/OUT/0003")

	picked, err := svc.Pick(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if picked.Status != enums.DeliveryStatusPicked {
		t.Fatalf("expected picked status, got %s", picked.Status)
	}
	if picked.PickedAt == nil {
		t.Fatal("picked timestamp not stamped")
	}
	if len(stockStore.reserved) != 2 {
		t.Fatalf("expected both lines reserved, got %d", len(stockStore.reserved))
	}
}

func TestPick_InsufficientAvailabilityAbortsTransaction(t *testing.T) {
	warehouseID := uuid.New()
	delivery := draftDelivery(warehouseID,
		models.DeliveryItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 9},
	)
	repo := &stubRepo{delivery: delivery, claimed: 1}
	stockStore := &stubStock{
		reserveErr: pkgerrors.New(pkgerrors.CodeInsufficientAvailable, "insufficient available quantity"),
	}
	svc := newTestService(t, repo, stockStore, &stubLedger{}, "WH/OUT/0003")

	_, err := svc.Pick(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientAvailable {
		t.Fatalf("expected insufficient available, got %v", err)
	}
}

func TestPick_RejectedOutsideDraft(t *testing.T) {
	delivery := draftDelivery(uuid.New())
	delivery.Status = enums.DeliveryStatusPicked
	repo := &stubRepo{delivery: delivery, claimed: 0}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/OUT/0003")

	_, err := svc.Pick(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestPick_HiddenOutsideScope(t *testing.T) {
	delivery := draftDelivery(uuid.New(),
		models.DeliveryItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 3},
	)
	repo := &stubRepo{delivery: delivery, claimed: 1}
	stockStore := &stubStock{}
	svc := newTestService(t, repo, stockStore, &stubLedger{}, "WH/OUT/0003")

	home := uuid.New()
	_, err := svc.Pick(context.Background(), scope.ForActor(enums.UserRoleStaff, &home), delivery.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found outside scope, got %v", err)
	}
	if len(stockStore.reserved) != 0 {
		t.Fatalf("no holds may be placed outside scope, got %v", stockStore.reserved)
	}
}

func TestPack_PureStatusTransition(t *testing.T) {
	delivery := draftDelivery(uuid.New(),
		models.DeliveryItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1},
	)
	delivery.Status = enums.DeliveryStatusPicked
	repo := &stubRepo{delivery: delivery, claimed: 1}
	stockStore := &stubStock{}
	ledgerSvc := &stubLedger{}
	svc := newTestService(t, repo, stockStore, ledgerSvc, "WH/OUT/0003")

	packed, err := svc.Pack(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if packed.Status != enums.DeliveryStatusPacked {
		t.Fatalf("expected packed status, got %s", packed.Status)
	}
	if len(stockStore.reserved) != 0 || len(stockStore.decreased) != 0 || len(ledgerSvc.appended) != 0 {
		t.Fatal("pack must not touch stock or the ledger")
	}
}

func TestValidate_RemovesStockAndAppendsNegativeEntries(t *testing.T) {
	warehouseID := uuid.New()
	productID := uuid.New()
	delivery := draftDelivery(warehouseID,
		models.DeliveryItem{ID: uuid.New(), ProductID: productID, Quantity: 6},
	)
	delivery.Status = enums.DeliveryStatusPacked
	repo := &stubRepo{delivery: delivery, claimed: 1}
	stockStore := &stubStock{mutations: map[uuid.UUID]stock.Mutation{
		productID: {Before: 10, After: 4},
	}}
	ledgerSvc := &stubLedger{}
	svc := newTestService(t, repo, stockStore, ledgerSvc, "WH/OUT/0003")

	actor := uuid.New()
	validated, err := svc.Validate(context.Background(), scope.Scope{}, delivery.ID, actor)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validated.Status != enums.DeliveryStatusValidated {
		t.Fatalf("expected validated status, got %s", validated.Status)
	}
	if validated.ValidatedBy == nil || *validated.ValidatedBy != actor {
		t.Fatal("validator identity not stamped")
	}
	if len(stockStore.decreased) != 1 || stockStore.decreased[0] != 6 {
		t.Fatalf("expected line decreased by 6, got %v", stockStore.decreased)
	}
	if len(ledgerSvc.appended) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(ledgerSvc.appended))
	}
	entry := ledgerSvc.appended[0]
	if entry.Change != -6 || entry.QuantityBefore != 10 || entry.QuantityAfter != 4 {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if entry.Kind != enums.MovementKindDelivery || entry.DocumentRef != "WH/OUT/0003" {
		t.Fatalf("unexpected document reference %+v", entry)
	}
}

func TestValidate_AlreadyValidated(t *testing.T) {
	delivery := draftDelivery(uuid.New())
	delivery.Status = enums.DeliveryStatusValidated
	repo := &stubRepo{delivery: delivery, claimed: 0}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/OUT/0003")

	_, err := svc.Validate(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestValidate_SkipsPackIsRejected(t *testing.T) {
	delivery := draftDelivery(uuid.New())
	delivery.Status = enums.DeliveryStatusPicked
	repo := &stubRepo{delivery: delivery, claimed: 0}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/OUT/0003")

	_, err := svc.Validate(context.Background(), scope.Scope{}, delivery.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGet_HiddenOutsideScope(t *testing.T) {
	delivery := draftDelivery(uuid.New())
	repo := &stubRepo{delivery: delivery}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/OUT/0003")

	home := uuid.New()
	_, err := svc.Get(context.Background(), scope.ForActor(enums.UserRoleStaff, &home), delivery.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found outside scope, got %v", err)
	}
}
