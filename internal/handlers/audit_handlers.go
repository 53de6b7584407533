package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tenantcore/internal/common"
	"tenantcore/internal/models"
	"tenantcore/internal/policy"
	"tenantcore/internal/repositories"
	"tenantcore/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditHandlers exposes the security event log and the invariant report to
// masters holding the audit_security_logs operation.
type AuditHandlers struct {
	eventSvc     services.SecurityEventService
	validatorSvc services.ValidatorService
	tenantRepo   repositories.TenantRepository
}

// NewAuditHandlers creates a new audit handlers instance
func NewAuditHandlers(eventSvc services.SecurityEventService, validatorSvc services.ValidatorService,
	tenantRepo repositories.TenantRepository) *AuditHandlers {
	return &AuditHandlers{
		eventSvc:     eventSvc,
		validatorSvc: validatorSvc,
		tenantRepo:   tenantRepo,
	}
}

// ListEvents handles GET /master/audit/events
func (h *AuditHandlers) ListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)

	decision := policy.AuthorizeOperation(principal, "audit_security_logs", nil)
	if !decision.Allowed {
		_ = h.eventSvc.RecordDecision(ctx, principal, decision)
		return common.SendAccessDenied(c)
	}

	filters, err := parseEventFilters(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	events, err := h.eventSvc.List(ctx, filters)
	if err != nil {
		return common.SendServerError(c, "Failed to list security events")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// Report handles GET /master/audit/report. The report is recomputed from
// live state on every call; nothing is cached.
func (h *AuditHandlers) Report(c echo.Context) error {
	ctx := c.Request().Context()
	principal, _ := common.GetPrincipalFromContext(ctx)
	tokenID, _ := common.GetSessionTokenFromContext(ctx)

	decision := policy.AuthorizeOperation(principal, "audit_security_logs", nil)
	if !decision.Allowed {
		_ = h.eventSvc.RecordDecision(ctx, principal, decision)
		return common.SendAccessDenied(c)
	}

	tenants, err := h.tenantRepo.List(ctx, 1000, 0)
	if err != nil {
		return common.SendServerError(c, "Failed to load tenant registry")
	}

	report := h.validatorSvc.RunFullValidation(ctx, principal, tokenID, nil, tenants)
	return c.JSON(http.StatusOK, report)
}

func parseEventFilters(c echo.Context) (*models.SecurityEventFilters, error) {
	filters := &models.SecurityEventFilters{}

	if v := c.QueryParam("event_type"); v != "" {
		filters.EventType = &v
	}
	if v := c.QueryParam("severity"); v != "" {
		sev := models.Severity(v)
		filters.Severity = &sev
	}
	if v := c.QueryParam("principal_id"); v != "" {
		id, err := common.ValidateUUID(v, "principal_id")
		if err != nil {
			return nil, err
		}
		filters.PrincipalID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filters.StartDate = &t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filters.EndDate = &t
	}
	if v := c.QueryParam("limit"); v != "" {
		filters.Limit, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("offset"); v != "" {
		filters.Offset, _ = strconv.Atoi(v)
	}
	return filters, nil
}
