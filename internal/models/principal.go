package models

import (
	"github.com/google/uuid"
)

// Role of an authenticated principal.
type Role string

const (
	RoleMaster Role = "MASTER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	return r == RoleMaster || r == RoleAdmin || r == RoleMember
}

// IsTenantScoped reports whether the role must carry a tenant affiliation.
func (r Role) IsTenantScoped() bool {
	return r == RoleAdmin || r == RoleMember
}

// Principal is the authenticated identity for a session. It is created at
// login and never mutated afterwards; a role or tenant change requires a
// fresh login.
//
// Structural invariant: RoleMaster implies TenantID == nil, and a
// tenant-scoped role implies a non-nil, non-zero TenantID.
type Principal struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
}

// NewMasterPrincipal builds a master principal. Masters never carry a tenant.
func NewMasterPrincipal(id uuid.UUID, displayName, email string) *Principal {
	return &Principal{
		ID:          id,
		DisplayName: displayName,
		Email:       email,
		Role:        RoleMaster,
	}
}

// NewTenantPrincipal builds an admin or member principal bound to a tenant.
func NewTenantPrincipal(id uuid.UUID, displayName, email string, role Role, tenantID uuid.UUID) *Principal {
	return &Principal{
		ID:          id,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		TenantID:    &tenantID,
	}
}

// IsMaster reports whether the principal is a platform operator.
func (p *Principal) IsMaster() bool {
	return p != nil && p.Role == RoleMaster
}

// ValidateStructure re-derives the structural invariant. A non-nil error here
// is a CRITICAL violation and must force session termination.
func (p *Principal) ValidateStructure() error {
	if p == nil {
		return ErrNoPrincipal
	}
	if !ValidRole(p.Role) {
		return ErrInvalidRole
	}
	if p.Role == RoleMaster {
		if p.TenantID != nil {
			return ErrMasterHasTenant
		}
		return nil
	}
	if p.TenantID == nil || *p.TenantID == uuid.Nil {
		return ErrMissingTenant
	}
	return nil
}

// Equal compares the identity-relevant fields of two principals. Display
// metadata is ignored; id, role and tenant are what the integrity check
// cares about.
func (p *Principal) Equal(other *Principal) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.ID != other.ID || p.Role != other.Role {
		return false
	}
	if (p.TenantID == nil) != (other.TenantID == nil) {
		return false
	}
	if p.TenantID != nil && *p.TenantID != *other.TenantID {
		return false
	}
	return true
}

// Snapshot captures the fields of a principal that are safe to embed in an
// audit record.
func (p *Principal) Snapshot() *PrincipalSnapshot {
	if p == nil {
		return nil
	}
	return &PrincipalSnapshot{
		ID:       p.ID,
		Email:    p.Email,
		Role:     p.Role,
		TenantID: p.TenantID,
	}
}

// PrincipalSnapshot is the immutable principal projection stored on security
// events.
type PrincipalSnapshot struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Role     Role       `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}
