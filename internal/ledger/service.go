package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/scope"
)

// DefaultListLimit caps unbounded ledger queries.
const DefaultListLimit = 100

// Service defines operations that record and query ledger entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.LedgerEntry, error)
	ListByDocument(ctx context.Context, kind enums.MovementKind, documentID uuid.UUID) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
}

// AppendInput captures the immutable data a ledger entry requires.
type AppendInput struct {
	ProductID      uuid.UUID
	WarehouseID    uuid.UUID
	Change         int
	Kind           enums.MovementKind
	DocumentID     uuid.UUID
	DocumentRef    string
	QuantityBefore int
	QuantityAfter  int
	CreatedBy      uuid.UUID
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.LedgerEntry, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id is required")
	}
	if input.DocumentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	if input.Change == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change must not be zero")
	}
	if input.QuantityBefore+input.Change != input.QuantityAfter {
		return nil, pkgerrors.New(pkgerrors.CodeInvariant, "before/after quantities do not match the change")
	}

	entry := &models.LedgerEntry{
		ID:             uuid.New(),
		ProductID:      input.ProductID,
		WarehouseID:    input.WarehouseID,
		Change:         input.Change,
		Kind:           input.Kind,
		DocumentID:     input.DocumentID,
		DocumentRef:    input.DocumentRef,
		QuantityBefore: input.QuantityBefore,
		QuantityAfter:  input.QuantityAfter,
		CreatedBy:      input.CreatedBy,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.LedgerEntry, error) {
	if sc.Empty {
		return []models.LedgerEntry{}, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", *filter.Kind))
	}
	return s.repo.List(ctx, filter)
}

func (s *service) ListByDocument(ctx context.Context, kind enums.MovementKind, documentID uuid.UUID) ([]models.LedgerEntry, error) {
	if documentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", kind))
	}
	return s.repo.ListByDocument(ctx, kind, documentID)
}
