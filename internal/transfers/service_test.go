package transfers

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
	created  *models.Transfer
	transfer *models.Transfer
	claimed  int64
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, transfer *models.Transfer) error {
	s.created = transfer
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	return s.transfer, nil
}

func (s *stubRepo) List(ctx context.Context, filter ListFilter) ([]models.Transfer, int64, error) {
	return nil, 0, nil
}

func (s *stubRepo) ClaimStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, actorID *uuid.UUID, at time.Time) (int64, error) {
	return s.claimed, nil
}

type stockCall struct {
	warehouseID uuid.UUID
	qty         int
}

type stubStock struct {
	mutations   map[uuid.UUID]stock.Mutation
	withdrawals []stockCall
	withdrawErr error
	increases   []stockCall
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
	s.increases = append(s.increases, stockCall{warehouseID: warehouseID, qty: qty})
	return s.mutations[productID], nil
}

func (s *stubStock) Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	return nil
}

func (s *stubStock) Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	return nil
}

func (s *stubStock) Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (stock.Mutation, error) {
	if s.withdrawErr != nil {
		return stock.Mutation{}, s.withdrawErr
	}
	s.withdrawals = append(s.withdrawals, stockCall{warehouseID: warehouseID, qty: qty})
	return s.mutations[productID], nil
}

func (s *stubStock) DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (stock.Mutation, error) {
	return stock.Mutation{}, nil
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

func draftTransfer(from, to uuid.UUID, items ...models.TransferItem) *models.Transfer {
	return &models.Transfer{
		ID:              uuid.New(),
		Ref:             "WH/INT/0004",
		FromWarehouseID: from,
		ToWarehouseID:   to,
		Status:          enums.TransferStatusDraft,
		Items:           items,
	}
}

func TestCreate_RejectsSameWarehouse(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStock{}, &stubLedger{}, "WH/INT/0001")

	warehouseID := uuid.New()
	_, err := svc.Create(context.Background(), scope.Scope{}, CreateInput{
		FromWarehouseID: warehouseID,
		ToWarehouseID:   warehouseID,
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		CreatedBy:       uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_AllocatesReferenceAndPersistsDraft(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0009")

	transfer, err := svc.Create(context.Background(), scope.Scope{}, CreateInput{
		FromWarehouseID: uuid.New(),
		ToWarehouseID:   uuid.New(),
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 7}},
		CreatedBy:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if transfer.Ref != "WH/INT/0009" {
		t.Fatalf("expected allocated ref, got %q", transfer.Ref)
	}
	if transfer.Status != enums.TransferStatusDraft {
		t.Fatalf("expected draft status, got %s", transfer.Status)
	}
	if repo.created == nil || len(repo.created.Items) != 1 {
		t.Fatalf("expected transfer persisted with items, got %+v", repo.created)
	}
}

func TestCreate_StaffScopedToEitherEnd(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubStock{}, &stubLedger{}, "WH/INT/0001")

	home := uuid.New()
	sc := scope.ForActor(enums.UserRoleStaff, &home)

	// Home warehouse as source is allowed.
	if _, err := svc.Create(context.Background(), sc, CreateInput{
		FromWarehouseID: home,
		ToWarehouseID:   uuid.New(),
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		CreatedBy:       uuid.New(),
	}); err != nil {
		t.Fatalf("expected scoped create to succeed, got %v", err)
	}

	// Neither end at the home warehouse is forbidden.
	_, err := svc.Create(context.Background(), sc, CreateInput{
		FromWarehouseID: uuid.New(),
		ToWarehouseID:   uuid.New(),
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		CreatedBy:       uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDispatch_WithdrawsFromSourceAndAppendsNegativeEntries(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	productID := uuid.New()
	transfer := draftTransfer(from, to,
		models.TransferItem{ID: uuid.New(), ProductID: productID, Quantity: 5},
	)
	repo := &stubRepo{transfer: transfer, claimed: 1}
	stockStore := &stubStock{mutations: map[uuid.UUID]stock.Mutation{
		productID: {Before: 12, After: 7},
	}}
	ledgerSvc := &stubLedger{}
	svc := newTestService(t, repo, stockStore, ledgerSvc, "WH/INT/0004")

	dispatched, err := svc.Dispatch(context.Background(), scope.Scope{}, transfer.ID, uuid.New())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched.Status != enums.TransferStatusDispatched {
		t.Fatalf("expected dispatched status, got %s", dispatched.Status)
	}
	if dispatched.DispatchedAt == nil {
		t.Fatal("dispatch timestamp not stamped")
	}
	if len(stockStore.withdrawals) != 1 || stockStore.withdrawals[0].warehouseID != from || stockStore.withdrawals[0].qty != 5 {
		t.Fatalf("unexpected withdrawals %+v", stockStore.withdrawals)
	}
	if len(ledgerSvc.appended) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(ledgerSvc.appended))
	}
	entry := ledgerSvc.appended[0]
	if entry.WarehouseID != from || entry.Change != -5 || entry.QuantityBefore != 12 || entry.QuantityAfter != 7 {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if entry.Kind != enums.MovementKindTransfer || entry.DocumentRef != "WH/INT/0004" {
		t.Fatalf("unexpected document reference %+v", entry)
	}
}

func TestDispatch_InsufficientStockAbortsTransaction(t *testing.T) {
	transfer := draftTransfer(uuid.New(), uuid.New(),
		models.TransferItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 50},
	)
	repo := &stubRepo{transfer: transfer, claimed: 1}
	stockStore := &stubStock{
		withdrawErr: pkgerrors.New(pkgerrors.CodeInsufficientAvailable, "insufficient available quantity"),
	}
	svc := newTestService(t, repo, stockStore, &stubLedger{}, "WH/INT/0004")

	_, err := svc.Dispatch(context.Background(), scope.Scope{}, transfer.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientAvailable {
		t.Fatalf("expected insufficient available, got %v", err)
	}
}

func TestReceive_LandsAtDestination(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	productA, productB := uuid.New(), uuid.New()
	transfer := draftTransfer(from, to,
		models.TransferItem{ID: uuid.New(), ProductID: productA, Quantity: 5},
		models.TransferItem{ID: uuid.New(), ProductID: productB, Quantity: 2},
	)
	transfer.Status = enums.TransferStatusDispatched
	repo := &stubRepo{transfer: transfer, claimed: 1}
	stockStore := &stubStock{mutations: map[uuid.UUID]stock.Mutation{
		productA: {Before: 3, After: 8},
		productB: {Before: 0, After: 2, FirstTouch: true},
	}}
	ledgerSvc := &stubLedger{}
	svc := newTestService(t, repo, stockStore, ledgerSvc, "WH/INT/0004")

	actor := uuid.New()
	received, err := svc.Receive(context.Background(), scope.Scope{}, transfer.ID, actor)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.Status != enums.TransferStatusReceived {
		t.Fatalf("expected received status, got %s", received.Status)
	}
	if received.ReceivedBy == nil || *received.ReceivedBy != actor {
		t.Fatal("receiver identity not stamped")
	}
	if len(stockStore.increases) != 2 {
		t.Fatalf("expected both lines increased, got %d", len(stockStore.increases))
	}
	for _, call := range stockStore.increases {
		if call.warehouseID != to {
			t.Fatalf("increase landed at wrong warehouse %s", call.warehouseID)
		}
	}
	// Every line gains an entry, first landing or not.
	if len(ledgerSvc.appended) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(ledgerSvc.appended))
	}
	first := ledgerSvc.appended[0]
	if first.ProductID != productA || first.WarehouseID != to || first.Change != 5 {
		t.Fatalf("unexpected ledger entry %+v", first)
	}
	second := ledgerSvc.appended[1]
	if second.ProductID != productB || second.Change != 2 || second.QuantityBefore != 0 || second.QuantityAfter != 2 {
		t.Fatalf("first landing must enter the ledger from zero, got %+v", second)
	}
}

func TestDispatch_RequiresSourceScope(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	transfer := draftTransfer(from, to,
		models.TransferItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1},
	)
	repo := &stubRepo{transfer: transfer, claimed: 1}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0004")

	// Destination staff can see the transfer but cannot dispatch it.
	_, err := svc.Dispatch(context.Background(), scope.ForActor(enums.UserRoleStaff, &to), transfer.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for destination staff, got %v", err)
	}

	// Staff at an unrelated warehouse never learns the transfer exists.
	other := uuid.New()
	_, err = svc.Dispatch(context.Background(), scope.ForActor(enums.UserRoleStaff, &other), transfer.ID, uuid.New())
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found outside scope, got %v", err)
	}
}

func TestReceive_RequiresDestinationScope(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	transfer := draftTransfer(from, to,
		models.TransferItem{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1},
	)
	transfer.Status = enums.TransferStatusDispatched
	repo := &stubRepo{transfer: transfer, claimed: 1}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0004")

	_, err := svc.Receive(context.Background(), scope.ForActor(enums.UserRoleStaff, &from), transfer.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for source staff, got %v", err)
	}
}

func TestReceive_AlreadyReceived(t *testing.T) {
	transfer := draftTransfer(uuid.New(), uuid.New())
	transfer.Status = enums.TransferStatusReceived
	repo := &stubRepo{transfer: transfer, claimed: 0}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0004")

	_, err := svc.Receive(context.Background(), scope.Scope{}, transfer.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReceive_DraftIsRejected(t *testing.T) {
	transfer := draftTransfer(uuid.New(), uuid.New())
	repo := &stubRepo{transfer: transfer, claimed: 0}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0004")

	_, err := svc.Receive(context.Background(), scope.Scope{}, transfer.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGet_VisibleFromEitherEnd(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	transfer := draftTransfer(from, to)
	repo := &stubRepo{transfer: transfer}
	svc := newTestService(t, repo, &stubStock{}, &stubLedger{}, "WH/INT/0004")

	if _, err := svc.Get(context.Background(), scope.ForActor(enums.UserRoleStaff, &to), transfer.ID); err != nil {
		t.Fatalf("expected destination staff to see transfer, got %v", err)
	}

	other := uuid.New()
	_, err := svc.Get(context.Background(), scope.ForActor(enums.UserRoleStaff, &other), transfer.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found outside scope, got %v", err)
	}
}
