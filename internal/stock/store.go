package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db"
	"github.com/wareline/wareline-backend/pkg/db/models"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/scope"
)

const (
	setCountedMaxRetries = 5
	setCountedBackoff    = 10 * time.Millisecond
)

// Mutation reports the on-hand quantity around a stock change. FirstTouch is
// set when the change created the record, which writes no ledger entry.
type Mutation struct {
	Before     int
	After      int
	FirstTouch bool
}

// Store exposes the atomic read-modify-write surface over stock records.
// Movement services bind it to their transaction via WithTx so the status
// claim, the stock mutations, and the ledger appends commit together.
type Store interface {
	WithTx(tx *gorm.DB) Store
	Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error)
	GetOrCreate(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, bool, error)
	List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.StockRecord, int64, error)
	Increase(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error)
	Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error
	Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error
	Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error)
	DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error)
	SetCounted(ctx context.Context, productID, warehouseID uuid.UUID, counted int) (Mutation, error)
}

type store struct {
	repo Repository
}

// NewStore wires a stock store with the provided repository.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &store{repo: repo}, nil
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{repo: s.repo.WithTx(tx)}
}

func (s *store) Get(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, error) {
	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock record not found")
	}
	return record, nil
}

func (s *store) GetOrCreate(ctx context.Context, productID, warehouseID uuid.UUID) (*models.StockRecord, bool, error) {
	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, false, err
	}
	if record != nil {
		return record, false, nil
	}

	fresh := &models.StockRecord{ProductID: productID, WarehouseID: warehouseID}
	if err := s.repo.Create(ctx, fresh); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, getErr := s.repo.Get(ctx, productID, warehouseID)
			if getErr != nil {
				return nil, false, getErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return fresh, true, nil
}

func (s *store) List(ctx context.Context, sc scope.Scope, filter ListFilter) ([]models.StockRecord, int64, error) {
	if sc.Empty {
		return []models.StockRecord{}, 0, nil
	}
	if sc.WarehouseID != nil {
		filter.WarehouseID = sc.WarehouseID
	}
	return s.repo.List(ctx, filter)
}

// Increase adds qty on hand, creating the record on first touch.
func (s *store) Increase(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error) {
	if qty <= 0 {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.AddOnHand(ctx, productID, warehouseID, qty)
	if err != nil {
		return Mutation{}, err
	}
	if rows == 0 {
		fresh := &models.StockRecord{ProductID: productID, WarehouseID: warehouseID, OnHand: qty}
		if err := s.repo.Create(ctx, fresh); err != nil {
			if !db.IsUniqueViolation(err, "") {
				return Mutation{}, err
			}
			// Lost the creation race; the record exists now.
			if _, err := s.repo.AddOnHand(ctx, productID, warehouseID, qty); err != nil {
				return Mutation{}, err
			}
		} else {
			return Mutation{Before: 0, After: qty, FirstTouch: true}, nil
		}
	}

	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return Mutation{}, err
	}
	if record == nil {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeInvariant, "stock record vanished during increase")
	}
	return Mutation{Before: record.OnHand - qty, After: record.OnHand}, nil
}

// Reserve places a hold of qty against the available quantity.
func (s *store) Reserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.Reserve(ctx, productID, warehouseID, qty)
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.insufficientAvailable(ctx, productID, warehouseID, qty)
	}
	return nil
}

// Release removes a hold of qty. Going below zero is data corruption, not a
// business-rule failure.
func (s *store) Release(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.Release(ctx, productID, warehouseID, qty)
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeInvariant, "release would drive reserved below zero")
	}
	return nil
}

// Withdraw removes qty on hand without a prior hold, checking the available
// quantity.
func (s *store) Withdraw(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error) {
	if qty <= 0 {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.Withdraw(ctx, productID, warehouseID, qty)
	if err != nil {
		return Mutation{}, err
	}
	if rows == 0 {
		return Mutation{}, s.insufficientAvailable(ctx, productID, warehouseID, qty)
	}

	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return Mutation{}, err
	}
	if record == nil {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeInvariant, "stock record vanished during withdraw")
	}
	return Mutation{Before: record.OnHand + qty, After: record.OnHand}, nil
}

// DecreaseAndUnreserve removes qty from both on-hand and reserved, all or
// nothing.
func (s *store) DecreaseAndUnreserve(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (Mutation, error) {
	if qty <= 0 {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.DecreaseAndUnreserve(ctx, productID, warehouseID, qty)
	if err != nil {
		return Mutation{}, err
	}
	if rows == 0 {
		record, getErr := s.repo.Get(ctx, productID, warehouseID)
		if getErr != nil {
			return Mutation{}, getErr
		}
		details := map[string]any{"required": qty, "on_hand": 0, "reserved": 0}
		if record != nil {
			details["on_hand"] = record.OnHand
			details["reserved"] = record.Reserved
		}
		return Mutation{}, pkgerrors.New(pkgerrors.CodeInsufficientStock, "on-hand or reserved would go negative").WithDetails(details)
	}

	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return Mutation{}, err
	}
	if record == nil {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeInvariant, "stock record vanished during decrease")
	}
	return Mutation{Before: record.OnHand + qty, After: record.OnHand}, nil
}

// SetCounted overwrites on-hand with the counted quantity, leaving reserved
// untouched. Uses a compare-and-swap retry loop keyed on the quantity read.
func (s *store) SetCounted(ctx context.Context, productID, warehouseID uuid.UUID, counted int) (Mutation, error) {
	if counted < 0 {
		return Mutation{}, pkgerrors.New(pkgerrors.CodeValidation, "counted quantity must not be negative")
	}

	var mutation Mutation
	backoff := retry.WithMaxRetries(setCountedMaxRetries, retry.NewConstant(setCountedBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		record, err := s.repo.Get(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if record == nil {
			fresh := &models.StockRecord{ProductID: productID, WarehouseID: warehouseID, OnHand: counted}
			if err := s.repo.Create(ctx, fresh); err != nil {
				if db.IsUniqueViolation(err, "") {
					return retry.RetryableError(err)
				}
				return err
			}
			mutation = Mutation{Before: 0, After: counted, FirstTouch: true}
			return nil
		}

		if record.Reserved > counted {
			details := map[string]any{"reserved": record.Reserved, "counted": counted}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "counted quantity is below the reserved quantity").WithDetails(details)
		}

		rows, err := s.repo.SetOnHand(ctx, productID, warehouseID, record.OnHand, counted)
		if err != nil {
			return err
		}
		if rows == 0 {
			return retry.RetryableError(fmt.Errorf("stock record changed concurrently"))
		}
		mutation = Mutation{Before: record.OnHand, After: counted}
		return nil
	})
	if err != nil {
		return Mutation{}, err
	}
	return mutation, nil
}

func (s *store) insufficientAvailable(ctx context.Context, productID, warehouseID uuid.UUID, qty int) error {
	record, err := s.repo.Get(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	available := 0
	if record != nil {
		available = record.Available()
	}
	details := map[string]any{"available": available, "required": qty}
	return pkgerrors.New(pkgerrors.CodeInsufficientAvailable, "not enough available quantity").WithDetails(details)
}
