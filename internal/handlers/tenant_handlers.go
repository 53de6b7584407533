package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tenantcore/internal/common"
	"tenantcore/internal/models"
	"tenantcore/internal/services"

	"github.com/labstack/echo/v4"
)

// TenantHandlers exposes the master tenant lifecycle API. Routes using these
// handlers sit behind the master area guard; the service re-authorizes every
// call anyway.
type TenantHandlers struct {
	adminSvc services.TenantAdminService
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(adminSvc services.TenantAdminService) *TenantHandlers {
	return &TenantHandlers{adminSvc: adminSvc}
}

// TenantRequest is the create/update payload.
type TenantRequest struct {
	Name      string                `json:"name"`
	Domain    string                `json:"domain"`
	Subdomain string                `json:"subdomain"`
	Plan      string                `json:"plan"`
	MaxUsers  int                   `json:"max_users"`
	IsActive  *bool                 `json:"is_active,omitempty"`
	Settings  models.TenantSettings `json:"settings"`
}

// ListTenants handles GET /master/tenants
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	tenants, err := h.adminSvc.ListTenants(ctx, principal, limit, offset)
	if err != nil {
		return common.SendAccessDenied(c)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// GetTenant handles GET /master/tenants/:id
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	id, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	tenant, err := h.adminSvc.GetTenant(ctx, principal, id)
	if err != nil {
		return common.SendNotFoundError(c, "Tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

// CreateTenant handles POST /master/tenants
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	tenant := &models.Tenant{
		Name:      req.Name,
		Domain:    req.Domain,
		Subdomain: req.Subdomain,
		Plan:      req.Plan,
		MaxUsers:  req.MaxUsers,
		IsActive:  true,
		Settings:  req.Settings,
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	if err := h.adminSvc.CreateTenant(ctx, principal, tenant); err != nil {
		if errors.Is(err, models.ErrSentinelLimits) {
			return common.SendClientError(c, "Tenant limits must be finite and positive")
		}
		return common.SendClientError(c, err.Error())
	}
	return c.JSON(http.StatusCreated, tenant)
}

// UpdateTenant handles PUT /master/tenants/:id
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	id, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req TenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	tenant := &models.Tenant{
		ID:        id,
		Name:      req.Name,
		Domain:    req.Domain,
		Subdomain: req.Subdomain,
		Plan:      req.Plan,
		MaxUsers:  req.MaxUsers,
		IsActive:  true,
		Settings:  req.Settings,
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}

	if err := h.adminSvc.UpdateTenant(ctx, principal, tenant); err != nil {
		if errors.Is(err, models.ErrSentinelLimits) {
			return common.SendClientError(c, "Tenant limits must be finite and positive")
		}
		return common.SendClientError(c, err.Error())
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant handles DELETE /master/tenants/:id
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	id, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	if err := h.adminSvc.DeleteTenant(ctx, principal, id); err != nil {
		return common.SendClientError(c, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SuspendTenant handles POST /master/tenants/:id/suspend
func (h *TenantHandlers) SuspendTenant(c echo.Context) error {
	return h.setActive(c, false)
}

// ActivateTenant handles POST /master/tenants/:id/activate
func (h *TenantHandlers) ActivateTenant(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *TenantHandlers) setActive(c echo.Context, active bool) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	id, err := common.ValidateUUID(c.Param("id"), "tenant id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if active {
		err = h.adminSvc.ActivateTenant(ctx, principal, id)
	} else {
		err = h.adminSvc.SuspendTenant(ctx, principal, id)
	}
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenant_id": id,
		"is_active": active,
	})
}

// SystemStats handles GET /master/stats
func (h *TenantHandlers) SystemStats(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	stats, err := h.adminSvc.SystemStats(ctx, principal)
	if err != nil {
		return common.SendAccessDenied(c)
	}
	return c.JSON(http.StatusOK, stats)
}
