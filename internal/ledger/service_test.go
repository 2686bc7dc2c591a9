package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/scope"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.LedgerEntry) error
	listFn   func(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepository) ListByDocument(ctx context.Context, kind enums.MovementKind, documentID uuid.UUID) ([]models.LedgerEntry, error) {
	return nil, nil
}

func validAppendInput() AppendInput {
	return AppendInput{
		ProductID:      uuid.New(),
		WarehouseID:    uuid.New(),
		Change:         -8,
		Kind:           enums.MovementKindDelivery,
		DocumentID:     uuid.New(),
		DocumentRef:    "WH/OUT/0001",
		QuantityBefore: 10,
		QuantityAfter:  2,
		CreatedBy:      uuid.New(),
	}
}

func TestService_Append(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.LedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		created = entry
		return nil
	}

	input := validAppendInput()
	got, err := svc.Append(context.Background(), input)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger entry to be created")
	}
	if created.ProductID != input.ProductID || created.Change != input.Change || created.Kind != input.Kind {
		t.Fatalf("unexpected ledger entry data: %+v", created)
	}
	if created.QuantityBefore != 10 || created.QuantityAfter != 2 {
		t.Fatalf("before/after not preserved: %+v", created)
	}
	if created.DocumentRef != "WH/OUT/0001" {
		t.Fatalf("document ref not preserved: %q", created.DocumentRef)
	}
	if got != created {
		t.Fatal("service should return the created entry")
	}
}

func TestService_AppendValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*AppendInput)
	}{
		{"missing product id", func(in *AppendInput) { in.ProductID = uuid.Nil }},
		{"missing warehouse id", func(in *AppendInput) { in.WarehouseID = uuid.Nil }},
		{"missing document id", func(in *AppendInput) { in.DocumentID = uuid.Nil }},
		{"missing creator", func(in *AppendInput) { in.CreatedBy = uuid.Nil }},
		{"invalid kind", func(in *AppendInput) { in.Kind = enums.MovementKind("not_real") }},
		{"zero change", func(in *AppendInput) { in.Change = 0; in.QuantityAfter = in.QuantityBefore }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validAppendInput()
			tc.mutate(&input)
			if _, err := svc.Append(context.Background(), input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_AppendRejectsInconsistentQuantities(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := validAppendInput()
	input.QuantityAfter = input.QuantityBefore + input.Change + 1

	_, err = svc.Append(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvariant {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestService_AppendRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		return expectedErr
	}

	if _, err := svc.Append(context.Background(), validAppendInput()); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_ListAppliesScopeAndDefaultLimit(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var seen ListFilter
	repo.listFn = func(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, error) {
		seen = filter
		return []models.LedgerEntry{}, nil
	}

	home := uuid.New()
	sc := scope.ForActor(enums.UserRoleStaff, &home)
	if _, err := svc.List(context.Background(), sc, ListFilter{}); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if seen.WarehouseID == nil || *seen.WarehouseID != home {
		t.Fatalf("expected scope warehouse applied, got %v", seen.WarehouseID)
	}
	if seen.Limit != DefaultListLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultListLimit, seen.Limit)
	}
}

func TestService_ListEmptyScopeShortCircuits(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	repo.listFn = func(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, error) {
		t.Fatal("repository must not be queried for the empty scope")
		return nil, nil
	}

	entries, err := svc.List(context.Background(), scope.ForActor(enums.UserRoleStaff, nil), ListFilter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
