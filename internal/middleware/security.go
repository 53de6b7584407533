package middleware

import (
	"errors"
	"log"

	"tenantcore/internal/caching"
	"tenantcore/internal/common"
	"tenantcore/internal/identity"
	"tenantcore/internal/models"
	"tenantcore/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// tenantParamNames are the request parameter spellings that name a target
// tenant. Any of them appearing where it must not is an isolation signal.
var tenantParamNames = []string{"tenant_id", "tenantId", "tenant"}

// SecurityEnforcer is the request-boundary half of the isolation design. It
// runs behind SessionMiddleware and enforces, in order: principal structure,
// tenant-parameter interception, and session integrity. Structural faults
// are CRITICAL and end the session after the event is logged; integrity
// mismatches are HIGH and logged without termination.
type SecurityEnforcer struct {
	eventSvc      services.SecurityEventService
	cacheSvc      caching.CacheService
	identityStore *identity.Store
}

// NewSecurityEnforcer creates the security middleware set.
func NewSecurityEnforcer(eventSvc services.SecurityEventService, cacheSvc caching.CacheService,
	identityStore *identity.Store) *SecurityEnforcer {
	return &SecurityEnforcer{
		eventSvc:      eventSvc,
		cacheSvc:      cacheSvc,
		identityStore: identityStore,
	}
}

// ValidateStructure forces termination on any structural violation of the
// authenticated principal. The audit event is appended before the session
// is torn down; a termination that failed to log did not happen.
func (se *SecurityEnforcer) ValidateStructure() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, _ := common.GetPrincipalFromContext(ctx)

			if err := principal.ValidateStructure(); err != nil {
				eventType := structuralEventType(err)
				if recErr := se.eventSvc.Record(ctx, eventType, principal, models.JSONB{
					"path":  c.Path(),
					"error": err.Error(),
				}, models.SeverityCritical); recErr != nil {
					log.Printf("Failed to record structural violation: %v", recErr)
				}
				if recErr := se.eventSvc.Record(ctx, models.EventForcedTermination, principal, models.JSONB{
					"trigger": eventType,
				}, models.SeverityCritical); recErr != nil {
					log.Printf("Failed to record forced termination: %v", recErr)
				}
				se.terminate(c)
				return common.SendSecurityNotice(c)
			}
			return next(c)
		}
	}
}

// InterceptTenantParams blocks requests that name a tenant other than the
// caller's own. For masters any tenant parameter on a data route is a
// violation; management routes authorize their tenant subjects through the
// policy engine instead and do not use this middleware.
func (se *SecurityEnforcer) InterceptTenantParams() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, ok := common.GetPrincipalFromContext(ctx)
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			target, found := requestTenantParam(c)
			if !found {
				return next(c)
			}

			if principal.IsMaster() {
				if err := se.eventSvc.Record(ctx, models.EventMasterTenantParam, principal, models.JSONB{
					"path":         c.Path(),
					"tenant_param": target,
				}, models.SeverityHigh); err != nil {
					log.Printf("Failed to record tenant param interception: %v", err)
				}
				return common.SendAccessDenied(c)
			}

			if principal.TenantID == nil || target != principal.TenantID.String() {
				if err := se.eventSvc.Record(ctx, models.EventCrossTenantAccess, principal, models.JSONB{
					"path":         c.Path(),
					"tenant_param": target,
				}, models.SeverityHigh); err != nil {
					log.Printf("Failed to record cross-tenant access: %v", err)
				}
				return common.SendAccessDenied(c)
			}
			return next(c)
		}
	}
}

// VerifySessionIntegrity compares the durable session copy against the
// in-process identity store. Mismatches are logged as HIGH and the request
// proceeds: the comparison detects tampering, it does not adjudicate it.
func (se *SecurityEnforcer) VerifySessionIntegrity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, _ := common.GetPrincipalFromContext(ctx)
			tokenID, hasToken := common.GetSessionTokenFromContext(ctx)
			if !hasToken || principal == nil {
				return next(c)
			}

			stored, err := se.cacheSvc.GetSessionPrincipal(ctx, tokenID)
			if err != nil {
				if errors.Is(err, models.ErrSessionCorrupted) {
					se.recordMismatch(c, models.EventSessionParseError, principal, models.JSONB{
						"token_id": tokenID,
					})
				}
				return next(c)
			}

			live, ok := se.identityStore.Get(tokenID)
			if !ok {
				live = principal
			}

			if stored.ID != live.ID {
				se.recordMismatch(c, models.EventSessionUserIDMismatch, principal, models.JSONB{
					"stored_id": stored.ID.String(),
					"live_id":   live.ID.String(),
				})
			}
			if stored.Role != live.Role {
				se.recordMismatch(c, models.EventSessionRoleMismatch, principal, models.JSONB{
					"stored_role": string(stored.Role),
					"live_role":   string(live.Role),
				})
			}
			if !tenantPointerEqual(stored.TenantID, live.TenantID) {
				se.recordMismatch(c, models.EventSessionTenantIDMismatch, principal, models.JSONB{
					"stored_tenant": tenantPointerString(stored.TenantID),
					"live_tenant":   tenantPointerString(live.TenantID),
				})
			}

			return next(c)
		}
	}
}

// RequireMasterArea guards the master management surface. Non-master
// principals are refused and logged.
func (se *SecurityEnforcer) RequireMasterArea() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, ok := common.GetPrincipalFromContext(ctx)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !principal.IsMaster() {
				if err := se.eventSvc.Record(ctx, models.EventNonMasterAreaAccess, principal, models.JSONB{
					"path": c.Path(),
				}, models.SeverityHigh); err != nil {
					log.Printf("Failed to record area violation: %v", err)
				}
				return common.SendAccessDenied(c)
			}
			return next(c)
		}
	}
}

// RequireTenantArea guards tenant application routes. Masters are refused
// and logged: tenant lifecycle management never includes the tenant's own
// application surface.
func (se *SecurityEnforcer) RequireTenantArea() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, ok := common.GetPrincipalFromContext(ctx)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if principal.IsMaster() {
				if err := se.eventSvc.Record(ctx, models.EventMasterTenantAreaAccess, principal, models.JSONB{
					"path": c.Path(),
				}, models.SeverityHigh); err != nil {
					log.Printf("Failed to record area violation: %v", err)
				}
				return common.SendAccessDenied(c)
			}
			return next(c)
		}
	}
}

func (se *SecurityEnforcer) recordMismatch(c echo.Context, eventType string, principal *models.Principal, details models.JSONB) {
	details["path"] = c.Path()
	if err := se.eventSvc.Record(c.Request().Context(), eventType, principal, details, models.SeverityHigh); err != nil {
		log.Printf("Failed to record session mismatch %s: %v", eventType, err)
	}
}

// terminate tears down the session in both stores.
func (se *SecurityEnforcer) terminate(c echo.Context) {
	ctx := c.Request().Context()
	tokenID, ok := common.GetSessionTokenFromContext(ctx)
	if !ok {
		return
	}
	se.identityStore.Delete(tokenID)
	if err := se.cacheSvc.DeleteSession(ctx, tokenID); err != nil {
		log.Printf("Failed to clear durable session on termination: %v", err)
	}
}

// structuralEventType maps a structural validation error to its event type.
func structuralEventType(err error) string {
	switch {
	case errors.Is(err, models.ErrMasterHasTenant):
		return models.EventMasterWithTenantID
	case errors.Is(err, models.ErrMissingTenant):
		return models.EventUserWithoutTenantID
	case errors.Is(err, models.ErrInvalidRole):
		return models.EventRoleTransition
	default:
		return models.EventTenantIsolationViolation
	}
}

// requestTenantParam finds an explicit tenant parameter in the path or
// query. Returns the raw value and whether one was present.
func requestTenantParam(c echo.Context) (string, bool) {
	for _, name := range tenantParamNames {
		if v := c.Param(name); v != "" {
			return v, true
		}
		if v := c.QueryParam(name); v != "" {
			return v, true
		}
	}
	return "", false
}

func tenantPointerEqual(a, b *uuid.UUID) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func tenantPointerString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
