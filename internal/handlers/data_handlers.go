package handlers

import (
	"errors"
	"net/http"

	"tenantcore/internal/common"
	"tenantcore/internal/models"
	"tenantcore/internal/policy"
	"tenantcore/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DataHandlers serves the tenant application surface. Every response is
// double-filtered: the repository queries by tenant_id at the source, and
// the policy filter re-checks ownership on the way out.
type DataHandlers struct {
	resolverSvc services.TenantResolverService
	eventSvc    services.SecurityEventService
}

// NewDataHandlers creates a new data handlers instance
func NewDataHandlers(resolverSvc services.TenantResolverService, eventSvc services.SecurityEventService) *DataHandlers {
	return &DataHandlers{resolverSvc: resolverSvc, eventSvc: eventSvc}
}

// GetAppData handles GET /app/data. The tenant comes from the request
// origin, never from a parameter; the caller must belong to it.
func (h *DataHandlers) GetAppData(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	origin := c.Request().Header.Get("X-Tenant-Origin")
	if origin == "" {
		origin = c.Request().Host
	}

	tenant, err := h.resolverSvc.ResolveTenant(ctx, origin)
	if err != nil {
		if errors.Is(err, models.ErrTenantNotResolved) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to resolve tenant")
	}

	if !policy.CanAccessTenant(principal, tenant.ID) {
		if recErr := h.eventSvc.Record(ctx, models.EventTenantIsolationViolation, principal, models.JSONB{
			"resolved_tenant_id": tenant.ID.String(),
			"origin":             origin,
		}, models.SeverityCritical); recErr != nil {
			return common.SendServerError(c, "Failed to record security event")
		}
		return common.SendAccessDenied(c)
	}

	data, err := h.resolverSvc.LoadTenantScopedData(ctx, tenant)
	if err != nil {
		return common.SendServerError(c, "Failed to load tenant data")
	}

	// Source queries already filtered by tenant; filtering again costs one
	// pass and catches a mis-scoped query before it leaves the process.
	data.Products = policy.FilterByTenant(principal, data.Products,
		func(p models.TenantProduct) uuid.UUID { return p.TenantID })
	data.Templates = policy.FilterByTenant(principal, data.Templates,
		func(t models.TenantTemplate) uuid.UUID { return t.TenantID })
	data.Configurations = policy.FilterByTenant(principal, data.Configurations,
		func(cfg models.TenantConfiguration) uuid.UUID { return cfg.TenantID })
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenant": map[string]interface{}{
			"id":        tenant.ID,
			"name":      tenant.Name,
			"subdomain": tenant.Subdomain,
		},
		"data": data,
	})
}
