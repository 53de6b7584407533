package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant plans. Every tenant, including the operator's own organization,
// holds one of these; there is no "unlimited" plan.
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// ValidPlan reports whether plan is one of the known plan values.
func ValidPlan(plan string) bool {
	return plan == PlanBasic || plan == PlanProfessional || plan == PlanEnterprise
}

// TenantSettings holds per-tenant feature flags and numeric limits. Limits
// are always finite and positive; -1 or 0 sentinels are rejected by the
// tenant admin service and flagged by the audit reporter.
type TenantSettings struct {
	AllowCustomProducts  bool `json:"allow_custom_products" db:"allow_custom_products"`
	AllowCustomTemplates bool `json:"allow_custom_templates" db:"allow_custom_templates"`
	AllowIntegrations    bool `json:"allow_integrations" db:"allow_integrations"`
	MaxProducts          int  `json:"max_products" db:"max_products"`
	MaxTemplates         int  `json:"max_templates" db:"max_templates"`
}

// Tenant is an isolated customer organization, the unit of data partitioning.
type Tenant struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Domain    string         `json:"domain" db:"domain"`
	Subdomain string         `json:"subdomain" db:"subdomain"`
	Plan      string         `json:"plan" db:"plan"`
	MaxUsers  int            `json:"max_users" db:"max_users"`
	IsActive  bool           `json:"is_active" db:"is_active"`
	Settings  TenantSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// HasSentinelLimits reports whether any limit carries an "unlimited" style
// sentinel. No tenant is special: a true result is an audit finding.
func (t *Tenant) HasSentinelLimits() bool {
	return t.MaxUsers <= 0 || t.Settings.MaxProducts <= 0 || t.Settings.MaxTemplates <= 0
}

// TenantScopedData is the bundle the tenant resolver loads for one tenant.
// Every row was filtered by tenant_id at the source query.
type TenantScopedData struct {
	Products       []TenantProduct       `json:"products"`
	Templates      []TenantTemplate      `json:"templates"`
	Configurations []TenantConfiguration `json:"configurations"`
}

// TenantProduct is a product row owned by exactly one tenant.
type TenantProduct struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name     string    `json:"name" db:"name"`
}

// TenantTemplate is a document template owned by exactly one tenant.
type TenantTemplate struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name     string    `json:"name" db:"name"`
}

// TenantConfiguration is a key/value configuration entry owned by exactly
// one tenant.
type TenantConfiguration struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Key      string    `json:"key" db:"key"`
	Value    string    `json:"value" db:"value"`
}
