package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"tenantcore/internal/identity"
	"tenantcore/internal/models"
	"tenantcore/internal/policy"
	"tenantcore/internal/repositories"

	"github.com/google/uuid"
)

// TenantAdminService is the master management surface: tenant lifecycle
// only, never tenant data. Every call is re-authorized against the master
// allow-list here, regardless of what the transport layer already checked,
// and every denial lands in the audit log.
type TenantAdminService interface {
	ListTenants(ctx context.Context, principal *models.Principal, limit, offset int) ([]*models.Tenant, error)
	GetTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Tenant, error)
	CreateTenant(ctx context.Context, principal *models.Principal, tenant *models.Tenant) error
	UpdateTenant(ctx context.Context, principal *models.Principal, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error
	SuspendTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error
	ActivateTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error
	SystemStats(ctx context.Context, principal *models.Principal) (*SystemStats, error)
}

// subdomainPattern constrains subdomains to DNS-label shape.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// SystemStats is the aggregate view exposed to masters: counts plus the
// sanitized metadata of recent tenants, never tenant-internal data.
type SystemStats struct {
	TotalTenants     int                      `json:"total_tenants"`
	ActiveTenants    int                      `json:"active_tenants"`
	SuspendedTenants int                      `json:"suspended_tenants"`
	LiveSessions     int                      `json:"live_sessions"`
	RecentTenants    []map[string]interface{} `json:"recent_tenants"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

type tenantAdminService struct {
	tenantRepo    repositories.TenantRepository
	resolverSvc   TenantResolverService
	eventSvc      SecurityEventService
	identityStore *identity.Store
}

// NewTenantAdminService creates the master tenant-management service.
func NewTenantAdminService(tenantRepo repositories.TenantRepository, resolverSvc TenantResolverService,
	eventSvc SecurityEventService, identityStore *identity.Store) TenantAdminService {
	return &tenantAdminService{
		tenantRepo:    tenantRepo,
		resolverSvc:   resolverSvc,
		eventSvc:      eventSvc,
		identityStore: identityStore,
	}
}

// authorize runs the policy decision for one management operation and logs
// any denial before returning it to the caller as a plain refusal.
func (s *tenantAdminService) authorize(ctx context.Context, principal *models.Principal, operation string, tenantID *uuid.UUID) error {
	decision := policy.AuthorizeOperation(principal, operation, tenantID)
	if decision.Allowed {
		return nil
	}
	if err := s.eventSvc.RecordDecision(ctx, principal, decision); err != nil {
		return err
	}
	return fmt.Errorf("operation %q denied", operation)
}

func (s *tenantAdminService) ListTenants(ctx context.Context, principal *models.Principal, limit, offset int) ([]*models.Tenant, error) {
	if err := s.authorize(ctx, principal, "list_tenants", nil); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, limit, offset)
}

func (s *tenantAdminService) GetTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Tenant, error) {
	if err := s.authorize(ctx, principal, "list_tenants", &id); err != nil {
		return nil, err
	}
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantAdminService) CreateTenant(ctx context.Context, principal *models.Principal, tenant *models.Tenant) error {
	if err := s.authorize(ctx, principal, "create_tenant", nil); err != nil {
		return err
	}
	if tenant.Name == "" || tenant.Subdomain == "" {
		return fmt.Errorf("tenant name and subdomain are required")
	}
	if !subdomainPattern.MatchString(tenant.Subdomain) {
		return fmt.Errorf("invalid subdomain %q", tenant.Subdomain)
	}
	if !models.ValidPlan(tenant.Plan) {
		return fmt.Errorf("unknown plan %q", tenant.Plan)
	}
	if tenant.HasSentinelLimits() {
		return models.ErrSentinelLimits
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return err
	}
	s.recordLifecycle(ctx, principal, "create_tenant", tenant)
	return nil
}

func (s *tenantAdminService) UpdateTenant(ctx context.Context, principal *models.Principal, tenant *models.Tenant) error {
	if err := s.authorize(ctx, principal, "update_tenant", &tenant.ID); err != nil {
		return err
	}
	if !models.ValidPlan(tenant.Plan) {
		return fmt.Errorf("unknown plan %q", tenant.Plan)
	}
	if tenant.HasSentinelLimits() {
		return models.ErrSentinelLimits
	}
	existing, err := s.tenantRepo.GetByID(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return err
	}
	// The subdomain may have changed; drop both resolutions.
	_ = s.resolverSvc.InvalidateOrigin(ctx, existing.Subdomain)
	_ = s.resolverSvc.InvalidateOrigin(ctx, tenant.Subdomain)
	s.recordLifecycle(ctx, principal, "update_tenant", tenant)
	return nil
}

func (s *tenantAdminService) DeleteTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error {
	if err := s.authorize(ctx, principal, "delete_tenant", &id); err != nil {
		return err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.resolverSvc.InvalidateOrigin(ctx, tenant.Subdomain)
	s.recordLifecycle(ctx, principal, "delete_tenant", tenant)
	return nil
}

func (s *tenantAdminService) SuspendTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error {
	return s.setActive(ctx, principal, "suspend_tenant", id, false)
}

func (s *tenantAdminService) ActivateTenant(ctx context.Context, principal *models.Principal, id uuid.UUID) error {
	return s.setActive(ctx, principal, "activate_tenant", id, true)
}

func (s *tenantAdminService) setActive(ctx context.Context, principal *models.Principal, operation string, id uuid.UUID, active bool) error {
	if err := s.authorize(ctx, principal, operation, &id); err != nil {
		return err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	// Suspension must take effect on the next resolution, not after the
	// cache TTL runs out.
	_ = s.resolverSvc.InvalidateOrigin(ctx, tenant.Subdomain)
	s.recordLifecycle(ctx, principal, operation, tenant)
	return nil
}

func (s *tenantAdminService) SystemStats(ctx context.Context, principal *models.Principal) (*SystemStats, error) {
	if err := s.authorize(ctx, principal, "view_system_stats", nil); err != nil {
		return nil, err
	}
	tenants, err := s.tenantRepo.List(ctx, 1000, 0)
	if err != nil {
		return nil, err
	}
	stats := &SystemStats{
		TotalTenants: len(tenants),
		LiveSessions: s.identityStore.Len(),
		GeneratedAt:  time.Now(),
	}
	for _, t := range tenants {
		if t.IsActive {
			stats.ActiveTenants++
		} else {
			stats.SuspendedTenants++
		}
	}

	// Even here the master sees only the metadata subset of each tenant.
	recent := tenants
	if len(recent) > 10 {
		recent = recent[:10]
	}
	for _, t := range recent {
		status := "active"
		if !t.IsActive {
			status = "suspended"
		}
		full := map[string]interface{}{
			"id":         t.ID.String(),
			"name":       t.Name,
			"created_at": t.CreatedAt,
			"status":     status,
			"subdomain":  t.Subdomain,
			"plan":       t.Plan,
			"max_users":  t.MaxUsers,
		}
		sanitized := policy.SanitizeForRole(principal, full,
			[]string{"id", "name", "created_at", "status", "subdomain", "plan", "max_users"})
		stats.RecentTenants = append(stats.RecentTenants, sanitized)
	}
	return stats, nil
}

func (s *tenantAdminService) recordLifecycle(ctx context.Context, principal *models.Principal, operation string, tenant *models.Tenant) {
	_ = s.eventSvc.Record(ctx, "TENANT_LIFECYCLE_CHANGE", principal, models.JSONB{
		"operation": operation,
		"tenant_id": tenant.ID.String(),
		"subdomain": tenant.Subdomain,
	}, models.SeverityLow)
}
