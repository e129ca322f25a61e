package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	registry, err := NewRegistry(nil)
	require.NoError(t, err)
	return NewEngine(registry)
}

func staffPrincipal() *Principal {
	return &Principal{ID: 7, Username: "dewi", Roles: []Role{RoleStaff}}
}

func TestHasPermission(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("granted through a role", func(t *testing.T) {
		d := engine.HasPermission(staffPrincipal(), "PRODUCTS_READ")
		assert.True(t, d.Granted)
		assert.NotEmpty(t, d.Reason)
	})

	t.Run("denied when no role grants it", func(t *testing.T) {
		d := engine.HasPermission(staffPrincipal(), "PRODUCTS_DELETE")
		assert.False(t, d.Granted)
	})

	t.Run("nil principal denies", func(t *testing.T) {
		d := engine.HasPermission(nil, "PRODUCTS_READ")
		assert.False(t, d.Granted)
	})

	t.Run("empty role set denies everything", func(t *testing.T) {
		p := &Principal{ID: 9, Username: "ghost"}
		for _, resource := range KnownResources() {
			for _, action := range KnownActions() {
				d := engine.HasPermission(p, NewPermission(resource, action))
				assert.False(t, d.Granted)
			}
		}
	})

	t.Run("unknown role grants nothing", func(t *testing.T) {
		p := &Principal{ID: 9, Username: "ghost", Roles: []Role{"JANITOR"}}
		d := engine.HasPermission(p, "PRODUCTS_READ")
		assert.False(t, d.Granted)
	})
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	engine := newTestEngine(t)
	p := staffPrincipal()

	t.Run("any grants on first hit", func(t *testing.T) {
		d := engine.HasAnyPermission(p, "SYSTEM_ADMIN", "PRODUCTS_READ")
		assert.True(t, d.Granted)
	})

	t.Run("any with empty list denies", func(t *testing.T) {
		d := engine.HasAnyPermission(p)
		assert.False(t, d.Granted)
	})

	t.Run("all requires every permission", func(t *testing.T) {
		assert.True(t, engine.HasAllPermissions(p, "PRODUCTS_READ", "OUTLETS_READ").Granted)
		assert.False(t, engine.HasAllPermissions(p, "PRODUCTS_READ", "PRODUCTS_DELETE").Granted)
	})

	t.Run("all with empty list is vacuously granted", func(t *testing.T) {
		assert.True(t, engine.HasAllPermissions(p).Granted)
	})
}

func TestRolePredicates(t *testing.T) {
	engine := newTestEngine(t)
	p := &Principal{ID: 3, Username: "sari", Roles: []Role{RoleManager, RoleStaff}}

	assert.True(t, engine.HasRole(p, RoleManager).Granted)
	assert.False(t, engine.HasRole(p, RoleAdmin).Granted)
	assert.True(t, engine.HasAnyRole(p, RoleAdmin, RoleStaff).Granted)
	assert.False(t, engine.HasAnyRole(p, RoleAdmin, RoleCashier).Granted)
	assert.False(t, engine.HasAnyRole(nil, RoleAdmin).Granted)
}

func TestHasMinimumRoleLevel(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("best level wins", func(t *testing.T) {
		p := &Principal{ID: 3, Roles: []Role{RoleStaff, RoleManager}}
		assert.True(t, engine.HasMinimumRoleLevel(p, 2).Granted)
		assert.False(t, engine.HasMinimumRoleLevel(p, 1).Granted)
	})

	t.Run("unleveled roles fail every minimum", func(t *testing.T) {
		p := &Principal{ID: 3, Roles: []Role{"JANITOR"}}
		assert.False(t, engine.HasMinimumRoleLevel(p, 1000).Granted)
	})

	t.Run("nil principal denies", func(t *testing.T) {
		assert.False(t, engine.HasMinimumRoleLevel(nil, 4).Granted)
	})
}

func TestIsOwnerOrAdmin(t *testing.T) {
	engine := newTestEngine(t)

	admin := &Principal{ID: 1, Roles: []Role{RoleAdmin}}
	assert.True(t, engine.IsOwnerOrAdmin(admin, 42).Granted)

	owner := &Principal{ID: 42, Roles: []Role{RoleStaff}}
	assert.True(t, engine.IsOwnerOrAdmin(owner, 42).Granted)

	other := &Principal{ID: 7, Roles: []Role{RoleStaff}}
	assert.False(t, engine.IsOwnerOrAdmin(other, 42).Granted)

	assert.False(t, engine.IsOwnerOrAdmin(nil, 42).Granted)
}

func TestCanAccessDepartment(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("manager crosses departments", func(t *testing.T) {
		p := &Principal{ID: 2, Roles: []Role{RoleManager}, Department: "Bakery"}
		assert.True(t, engine.CanAccessDepartment(p, "Deli").Granted)
	})

	t.Run("staff limited to own department", func(t *testing.T) {
		p := &Principal{ID: 7, Roles: []Role{RoleStaff}, Department: "Bakery"}
		assert.True(t, engine.CanAccessDepartment(p, "Bakery").Granted)
		assert.False(t, engine.CanAccessDepartment(p, "Deli").Granted)
	})

	t.Run("empty department on the principal denies", func(t *testing.T) {
		p := &Principal{ID: 7, Roles: []Role{RoleStaff}}
		assert.False(t, engine.CanAccessDepartment(p, "").Granted)
	})
}

func TestCanAccessResource(t *testing.T) {
	engine := newTestEngine(t)

	p := &Principal{ID: 5, Roles: []Role{RoleCashier}}
	assert.True(t, engine.CanAccessResource(p, ResourceTransactions, ActionWrite).Granted)
	assert.False(t, engine.CanAccessResource(p, ResourceCustomers, ActionWrite).Granted)
}
