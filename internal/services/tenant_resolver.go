package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"tenantcore/internal/caching"
	"tenantcore/internal/models"
	"tenantcore/internal/repositories"

	"github.com/jackc/pgx/v5"
)

// TenantResolverService maps a request origin to exactly one active tenant.
// There is no default tenant: an unknown or suspended subdomain resolves to
// nothing, and callers must treat that as a hard failure.
type TenantResolverService interface {
	ResolveTenant(ctx context.Context, origin string) (*models.Tenant, error)
	LoadTenantScopedData(ctx context.Context, tenant *models.Tenant) (*models.TenantScopedData, error)
	InvalidateOrigin(ctx context.Context, subdomain string) error
}

type tenantResolverService struct {
	tenantRepo repositories.TenantRepository
	dataRepo   repositories.TenantDataRepository
	cacheSvc   caching.CacheService
	cacheTTL   time.Duration
}

// NewTenantResolverService creates the tenant resolver.
func NewTenantResolverService(tenantRepo repositories.TenantRepository, dataRepo repositories.TenantDataRepository,
	cacheSvc caching.CacheService, cacheTTLSeconds int) TenantResolverService {
	ttl := time.Duration(cacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &tenantResolverService{
		tenantRepo: tenantRepo,
		dataRepo:   dataRepo,
		cacheSvc:   cacheSvc,
		cacheTTL:   ttl,
	}
}

// ResolveTenant resolves the tenant for a request origin by subdomain.
// Suspended tenants resolve to ErrTenantNotResolved exactly like unknown
// ones; a suspended tenant must look gone, not merely degraded.
func (s *tenantResolverService) ResolveTenant(ctx context.Context, origin string) (*models.Tenant, error) {
	subdomain := extractSubdomain(origin)
	if subdomain == "" {
		return nil, models.ErrTenantNotResolved
	}

	if cached, err := s.cacheSvc.GetTenantByOrigin(ctx, subdomain); err == nil && cached != nil {
		if !cached.IsActive {
			return nil, models.ErrTenantNotResolved
		}
		return cached, nil
	}

	tenant, err := s.tenantRepo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTenantNotResolved
		}
		return nil, err
	}
	if !tenant.IsActive {
		return nil, models.ErrTenantNotResolved
	}

	if err := s.cacheSvc.SetTenantByOrigin(ctx, subdomain, tenant, s.cacheTTL); err != nil {
		log.Printf("Failed to cache tenant origin %s: %v", subdomain, err)
	}
	return tenant, nil
}

// LoadTenantScopedData loads the tenant's working set. Every row comes from
// a query that filtered by tenant_id at the source.
func (s *tenantResolverService) LoadTenantScopedData(ctx context.Context, tenant *models.Tenant) (*models.TenantScopedData, error) {
	products, err := s.dataRepo.ListProducts(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	templates, err := s.dataRepo.ListTemplates(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	configurations, err := s.dataRepo.ListConfigurations(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return &models.TenantScopedData{
		Products:       products,
		Templates:      templates,
		Configurations: configurations,
	}, nil
}

// InvalidateOrigin drops the cached resolution for a subdomain. Called by
// the tenant admin service after any lifecycle change.
func (s *tenantResolverService) InvalidateOrigin(ctx context.Context, subdomain string) error {
	return s.cacheSvc.InvalidateTenantOrigin(ctx, subdomain)
}

// extractSubdomain pulls the first label from a host-like origin. Accepts a
// bare subdomain, a host, or a full origin URL.
func extractSubdomain(origin string) string {
	host := origin
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, ":/"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) == 1 {
		return parts[0]
	}
	sub := parts[0]
	if sub == "www" || sub == "app" {
		return ""
	}
	return sub
}
