// Package policy is the access decision core. Every function here is pure:
// no I/O, no logging, no clock. Callers (middleware, handlers, jobs) own the
// observable side effects around the decisions.
package policy

import (
	"fmt"

	"tenantcore/internal/models"

	"github.com/google/uuid"
)

// Master operation allow-list. All tenant lifecycle management, never tenant
// data. Shared by the policy engine and the master management API.
var MasterOperations = map[string]bool{
	"list_tenants":           true,
	"create_tenant":          true,
	"update_tenant":          true,
	"delete_tenant":          true,
	"suspend_tenant":         true,
	"activate_tenant":        true,
	"manage_global_settings": true,
	"view_system_stats":      true,
	"manage_master_users":    true,
	"audit_security_logs":    true,
}

// IsMasterOperation reports whether op is on the master allow-list.
func IsMasterOperation(op string) bool {
	return MasterOperations[op]
}

// CanAccessTenant reports whether the principal may touch tenant-internal
// data of tenantID. Masters never can: tenant lifecycle management does not
// include reading tenant data.
func CanAccessTenant(p *models.Principal, tenantID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.Role == models.RoleMaster {
		return false
	}
	if !p.Role.IsTenantScoped() || p.TenantID == nil {
		return false
	}
	return *p.TenantID == tenantID
}

// AuthorizeOperation decides a single operation for a principal. tenantID is
// the target tenant when the operation concerns one; nil otherwise.
func AuthorizeOperation(p *models.Principal, operation string, tenantID *uuid.UUID) models.AccessDecision {
	if p == nil {
		return models.Deny(operation, tenantID, "no authenticated principal")
	}

	if p.Role == models.RoleMaster {
		if !IsMasterOperation(operation) {
			return models.Deny(operation, tenantID, fmt.Sprintf("operation %q is not in the master allow-list", operation))
		}
		// Management operations may name a tenant as their subject
		// (suspend, update); data operations may not, and masters have
		// no data operations at all, so any allow-listed op passes.
		return models.Allow(operation, tenantID)
	}

	if !p.Role.IsTenantScoped() {
		return models.Deny(operation, tenantID, fmt.Sprintf("unknown role %q", p.Role))
	}
	if p.TenantID == nil || *p.TenantID == uuid.Nil {
		return models.Deny(operation, tenantID, "tenant-scoped principal without tenant")
	}
	if IsMasterOperation(operation) {
		return models.Deny(operation, tenantID, fmt.Sprintf("operation %q is master-only", operation))
	}
	if tenantID != nil && *tenantID != *p.TenantID {
		return models.Deny(operation, tenantID, "target tenant differs from principal tenant")
	}
	return models.Allow(operation, tenantID)
}

// FilterByTenant returns the subset of items owned by the principal's tenant.
// Masters get an empty slice regardless of input: they must never see tenant
// rows, not even filtered ones. A tenant-scoped principal without a tenant
// fails closed to an empty slice.
func FilterByTenant[T any](p *models.Principal, items []T, tenantIDOf func(T) uuid.UUID) []T {
	filtered := make([]T, 0, len(items))
	if p == nil || p.Role == models.RoleMaster {
		return filtered
	}
	if !p.Role.IsTenantScoped() || p.TenantID == nil || *p.TenantID == uuid.Nil {
		return filtered
	}
	for _, item := range items {
		if tenantIDOf(item) == *p.TenantID {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// masterVisibleFields is the metadata subset a master may ever see on a
// tenant-owned object.
var masterVisibleFields = map[string]bool{
	"id":         true,
	"name":       true,
	"created_at": true,
	"status":     true,
}

// SanitizeForRole degrades field visibility by role. Masters see only the
// intersection of allowedFields with a fixed metadata set; tenant principals
// see the full allowedFields intersection. Tenant identity is deliberately
// not consulted here.
func SanitizeForRole(p *models.Principal, object map[string]interface{}, allowedFields []string) map[string]interface{} {
	sanitized := make(map[string]interface{})
	if p == nil {
		return sanitized
	}
	for _, field := range allowedFields {
		value, ok := object[field]
		if !ok {
			continue
		}
		if p.Role == models.RoleMaster && !masterVisibleFields[field] {
			continue
		}
		sanitized[field] = value
	}
	return sanitized
}
