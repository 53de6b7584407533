package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateStructure(t *testing.T) {
	tenantID := uuid.New()

	t.Run("master without tenant is valid", func(t *testing.T) {
		p := NewMasterPrincipal(uuid.New(), "Operator", "ops@platform.test")
		assert.NoError(t, p.ValidateStructure())
	})

	t.Run("master with tenant is a violation", func(t *testing.T) {
		p := NewMasterPrincipal(uuid.New(), "Operator", "ops@platform.test")
		p.TenantID = &tenantID
		assert.ErrorIs(t, p.ValidateStructure(), ErrMasterHasTenant)
	})

	t.Run("member with tenant is valid", func(t *testing.T) {
		p := NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", RoleMember, tenantID)
		assert.NoError(t, p.ValidateStructure())
	})

	t.Run("member without tenant is a violation", func(t *testing.T) {
		p := NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", RoleMember, tenantID)
		p.TenantID = nil
		assert.ErrorIs(t, p.ValidateStructure(), ErrMissingTenant)
	})

	t.Run("member with zero tenant is a violation", func(t *testing.T) {
		p := NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", RoleAdmin, uuid.Nil)
		assert.ErrorIs(t, p.ValidateStructure(), ErrMissingTenant)
	})

	t.Run("unknown role is a violation", func(t *testing.T) {
		p := &Principal{ID: uuid.New(), Role: Role("SUPERUSER")}
		assert.ErrorIs(t, p.ValidateStructure(), ErrInvalidRole)
	})

	t.Run("nil principal is a violation", func(t *testing.T) {
		var p *Principal
		assert.ErrorIs(t, p.ValidateStructure(), ErrNoPrincipal)
	})
}

func TestPrincipalEqual(t *testing.T) {
	tenantID := uuid.New()
	a := NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", RoleMember, tenantID)

	same := NewTenantPrincipal(a.ID, "Renamed", "new@acme.test", RoleMember, tenantID)
	assert.True(t, a.Equal(same), "display metadata must not affect identity")

	elevated := NewTenantPrincipal(a.ID, "Member", "m@acme.test", RoleAdmin, tenantID)
	assert.False(t, a.Equal(elevated))

	moved := NewTenantPrincipal(a.ID, "Member", "m@acme.test", RoleMember, uuid.New())
	assert.False(t, a.Equal(moved))

	master := NewMasterPrincipal(a.ID, "Member", "m@acme.test")
	assert.False(t, a.Equal(master))

	assert.False(t, a.Equal(nil))
	var nilP *Principal
	assert.True(t, nilP.Equal(nil))
}

func TestSnapshot(t *testing.T) {
	tenantID := uuid.New()
	p := NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", RoleMember, tenantID)

	snap := p.Snapshot()
	assert.Equal(t, p.ID, snap.ID)
	assert.Equal(t, p.Email, snap.Email)
	assert.Equal(t, p.Role, snap.Role)
	assert.Equal(t, tenantID, *snap.TenantID)

	var nilP *Principal
	assert.Nil(t, nilP.Snapshot())
}
