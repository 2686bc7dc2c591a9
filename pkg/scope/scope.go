package scope

import (
	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/pkg/enums"
)

// Scope narrows stock and movement queries to what the actor may see.
// Admins and managers see everything; staff only their home warehouse. Staff
// without a home warehouse resolve to the empty scope.
type Scope struct {
	WarehouseID *uuid.UUID
	Empty       bool
}

// Unrestricted reports whether the scope applies no warehouse filter.
func (s Scope) Unrestricted() bool {
	return !s.Empty && s.WarehouseID == nil
}

// ForActor derives the query scope from the actor's role and home warehouse.
func ForActor(role enums.UserRole, homeWarehouse *uuid.UUID) Scope {
	if role == enums.UserRoleAdmin || role == enums.UserRoleManager {
		return Scope{}
	}
	if homeWarehouse == nil {
		return Scope{Empty: true}
	}
	warehouseID := *homeWarehouse
	return Scope{WarehouseID: &warehouseID}
}

// Allows reports whether a row bound to warehouseID is visible in the scope.
func (s Scope) Allows(warehouseID uuid.UUID) bool {
	if s.Empty {
		return false
	}
	if s.WarehouseID == nil {
		return true
	}
	return *s.WarehouseID == warehouseID
}

// AllowsEither reports whether a row bound to two warehouses, such as a
// transfer, is visible. Matching either endpoint is enough.
func (s Scope) AllowsEither(fromID, toID uuid.UUID) bool {
	return s.Allows(fromID) || s.Allows(toID)
}
