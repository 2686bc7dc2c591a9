package scope

import (
	"testing"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

func TestForActor_AdminAndManagerUnrestricted(t *testing.T) {
	home := uuid.New()
	for _, role := range []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager} {
		s := ForActor(role, &home)
		if !s.Unrestricted() {
			t.Fatalf("expected unrestricted scope for %s", role)
		}
		if !s.Allows(uuid.New()) {
			t.Fatalf("expected %s to see any warehouse", role)
		}
	}
}

func TestForActor_StaffScopedToHomeWarehouse(t *testing.T) {
	home := uuid.New()
	other := uuid.New()

	s := ForActor(enums.UserRoleStaff, &home)
	if s.Unrestricted() {
		t.Fatal("expected staff scope to be restricted")
	}
	if !s.Allows(home) {
		t.Fatal("expected staff to see home warehouse")
	}
	if s.Allows(other) {
		t.Fatal("expected staff not to see other warehouses")
	}
	if !s.AllowsEither(other, home) {
		t.Fatal("expected transfer visible when either endpoint matches")
	}
	if s.AllowsEither(other, uuid.New()) {
		t.Fatal("expected transfer hidden when neither endpoint matches")
	}
}

func TestForActor_StaffWithoutHomeWarehouseSeesNothing(t *testing.T) {
	s := ForActor(enums.UserRoleStaff, nil)
	if !s.Empty {
		t.Fatal("expected empty scope for staff without a home warehouse")
	}
	if s.Allows(uuid.New()) {
		t.Fatal("expected empty scope to hide every warehouse")
	}
}
