package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/internal/users"
	"github.com/wareline/wareline-backend/pkg/config"
	pkgmodels "github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepo struct {
	data    map[string]*pkgmodels.User
	created *pkgmodels.User
}

func newStubRegisterUserRepo() *stubRegisterUserRepo {
	return &stubRegisterUserRepo{data: map[string]*pkgmodels.User{}}
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	user := dto.ToModel()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterService(t *testing.T, repo *stubRegisterUserRepo) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) RegisterUserRepository {
			return repo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := newStubRegisterUserRepo()
	svc := newRegisterService(t, repo)

	warehouseID := uuid.New()
	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:        "Jamie Rivera",
		Email:       "Jamie@Example.com",
		Password:    "Secret123!",
		Role:        enums.UserRoleStaff,
		WarehouseID: &warehouseID,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if repo.created == nil {
		t.Fatal("expected user to be created")
	}
	if dto.Email != "jamie@example.com" {
		t.Fatalf("expected lowercased email, got %q", dto.Email)
	}
	if dto.Role != enums.UserRoleStaff {
		t.Fatalf("unexpected role %s", dto.Role)
	}
	if dto.WarehouseID == nil || *dto.WarehouseID != warehouseID {
		t.Fatal("home warehouse not persisted")
	}
	if repo.created.PasswordHash == "Secret123!" || repo.created.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newStubRegisterUserRepo()
	repo.data["taken@example.com"] = &pkgmodels.User{ID: uuid.New(), Email: "taken@example.com"}
	svc := newRegisterService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jamie Rivera",
		Email:    "taken@example.com",
		Password: "Secret123!",
		Role:     enums.UserRoleManager,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRequiresWarehouseForStaff(t *testing.T) {
	svc := newRegisterService(t, newStubRegisterUserRepo())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jamie Rivera",
		Email:    "jamie@example.com",
		Password: "Secret123!",
		Role:     enums.UserRoleStaff,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	svc := newRegisterService(t, newStubRegisterUserRepo())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jamie Rivera",
		Email:    "jamie@example.com",
		Password: "Secret123!",
		Role:     "supervisor",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
