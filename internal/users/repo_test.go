package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(conn)
}

func TestCreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	warehouseID := uuid.New()
	created, err := repo.Create(ctx, CreateUserDTO{
		Name:         "Dana Reyes",
		Email:        "dana@example.com",
		PasswordHash: "hash",
		Role:         enums.UserRoleStaff,
		WarehouseID:  &warehouseID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byEmail, err := repo.FindByEmail(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected %s, got %s", created.ID, byEmail.ID)
	}
	if byEmail.WarehouseID == nil || *byEmail.WarehouseID != warehouseID {
		t.Fatalf("warehouse assignment lost: %+v", byEmail)
	}
	if byEmail.Role != enums.UserRoleStaff {
		t.Fatalf("unexpected role %s", byEmail.Role)
	}
}

func TestCreate_DefaultsToStaffRole(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(context.Background(), CreateUserDTO{
		Name:         "Sam Okafor",
		Email:        "sam@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Role != enums.UserRoleStaff {
		t.Fatalf("expected staff default, got %s", created.Role)
	}
	if !created.IsActive {
		t.Fatal("new users must default to active")
	}
}

func TestUpdateRoleAndWarehouse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Name:         "Lee Chan",
		Email:        "lee@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateRole(ctx, created.ID, enums.UserRoleManager); err != nil {
		t.Fatalf("update role: %v", err)
	}
	warehouseID := uuid.New()
	if err := repo.UpdateWarehouse(ctx, created.ID, &warehouseID); err != nil {
		t.Fatalf("update warehouse: %v", err)
	}

	user, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.Role != enums.UserRoleManager {
		t.Fatalf("expected manager, got %s", user.Role)
	}
	if user.WarehouseID == nil || *user.WarehouseID != warehouseID {
		t.Fatalf("warehouse not updated: %+v", user)
	}

	if err := repo.UpdateWarehouse(ctx, created.ID, nil); err != nil {
		t.Fatalf("clear warehouse: %v", err)
	}
	user, err = repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.WarehouseID != nil {
		t.Fatalf("expected cleared warehouse, got %v", user.WarehouseID)
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Name:         "Noor Haddad",
		Email:        "noor@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUpdateLastLoginAndActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Name:         "Ash Patel",
		Email:        "ash@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpdateLastLogin(ctx, created.ID, at); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	if err := repo.UpdateActive(ctx, created.ID, false); err != nil {
		t.Fatalf("update active: %v", err)
	}

	user, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
	if user.IsActive {
		t.Fatal("expected deactivated user")
	}
}
