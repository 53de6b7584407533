package services

import (
	"context"
	"fmt"
	"time"

	"tenantcore/internal/caching"
	"tenantcore/internal/identity"
	"tenantcore/internal/models"
)

// ValidatorService recomputes the isolation invariants from scratch on every
// run. It holds no state between runs; a report reflects exactly the moment
// it was produced.
type ValidatorService interface {
	RunFullValidation(ctx context.Context, principal *models.Principal, tokenID string, currentTenant *models.Tenant, allTenants []*models.Tenant) *models.ValidationReport
}

type validatorService struct {
	cacheSvc      caching.CacheService
	identityStore *identity.Store
}

// NewValidatorService creates the audit reporter.
func NewValidatorService(cacheSvc caching.CacheService, identityStore *identity.Store) ValidatorService {
	return &validatorService{cacheSvc: cacheSvc, identityStore: identityStore}
}

func (v *validatorService) RunFullValidation(ctx context.Context, principal *models.Principal, tokenID string, currentTenant *models.Tenant, allTenants []*models.Tenant) *models.ValidationReport {
	report := &models.ValidationReport{}

	v.checkPrincipalStructure(report, principal)
	v.checkTenantContext(report, principal, currentTenant)
	v.checkTenantExists(report, principal, allTenants)
	v.checkTenantLimits(report, allTenants)
	v.checkStorageConsistency(ctx, report, principal, tokenID)

	report.Finalize(time.Now())
	return report
}

func (v *validatorService) checkPrincipalStructure(report *models.ValidationReport, principal *models.Principal) {
	if principal == nil {
		report.Results = append(report.Results, models.TestResult{
			Name:     "principal_present",
			Passed:   false,
			Severity: models.SeverityCritical,
			Message:  "no authenticated principal in session",
		})
		return
	}
	report.Results = append(report.Results, models.TestResult{
		Name:     "principal_present",
		Passed:   true,
		Severity: models.SeverityCritical,
		Message:  "principal present",
	})

	report.Results = append(report.Results, models.TestResult{
		Name:     "principal_role_known",
		Passed:   models.ValidRole(principal.Role),
		Severity: models.SeverityHigh,
		Message:  fmt.Sprintf("role %q", principal.Role),
	})

	if principal.Role == models.RoleMaster {
		report.Results = append(report.Results, models.TestResult{
			Name:     "master_has_no_tenant",
			Passed:   principal.TenantID == nil,
			Severity: models.SeverityCritical,
			Message:  "master principals must carry no tenant association",
		})
		return
	}
	if principal.Role.IsTenantScoped() {
		report.Results = append(report.Results, models.TestResult{
			Name:     "tenant_user_has_tenant",
			Passed:   principal.TenantID != nil,
			Severity: models.SeverityCritical,
			Message:  "tenant-scoped principals must carry a tenant association",
		})
	}
}

func (v *validatorService) checkTenantContext(report *models.ValidationReport, principal *models.Principal, currentTenant *models.Tenant) {
	if principal == nil {
		return
	}
	if principal.Role == models.RoleMaster {
		report.Results = append(report.Results, models.TestResult{
			Name:     "master_has_no_tenant_context",
			Passed:   currentTenant == nil,
			Severity: models.SeverityCritical,
			Message:  "master sessions must never hold a resolved tenant context",
		})
		return
	}
	if principal.TenantID == nil {
		return
	}
	if currentTenant == nil {
		// A tenant user without a resolved tenant context is visible but
		// not dangerous by itself: data loading is impossible without it.
		report.Results = append(report.Results, models.TestResult{
			Name:     "user_tenant_context_resolved",
			Passed:   false,
			Severity: models.SeverityMedium,
			Message:  "tenant-scoped session has no resolved tenant context",
		})
		return
	}
	report.Results = append(report.Results, models.TestResult{
		Name:     "user_in_own_tenant_context",
		Passed:   currentTenant.ID == *principal.TenantID,
		Severity: models.SeverityCritical,
		Message:  "resolved tenant context must match the principal's tenant",
		Details: models.JSONB{
			"principal_tenant_id": principal.TenantID.String(),
			"context_tenant_id":   currentTenant.ID.String(),
		},
	})
}

func (v *validatorService) checkTenantExists(report *models.ValidationReport, principal *models.Principal, allTenants []*models.Tenant) {
	if principal == nil || principal.TenantID == nil {
		return
	}
	found := false
	for _, t := range allTenants {
		if t != nil && t.ID == *principal.TenantID {
			found = true
			break
		}
	}
	report.Results = append(report.Results, models.TestResult{
		Name:     "principal_tenant_exists",
		Passed:   found,
		Severity: models.SeverityHigh,
		Message:  "principal's tenant must exist in the tenant registry",
		Details:  models.JSONB{"tenant_id": principal.TenantID.String()},
	})
}

// checkTenantLimits flags sentinel limits on every registered tenant. A -1
// or 0 limit is an effectively-unlimited backdoor, not a configuration
// style.
func (v *validatorService) checkTenantLimits(report *models.ValidationReport, allTenants []*models.Tenant) {
	for _, t := range allTenants {
		if t == nil {
			continue
		}
		report.Results = append(report.Results, models.TestResult{
			Name:     "tenant_plan_known",
			Passed:   models.ValidPlan(t.Plan),
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("tenant %s must hold a known plan", t.Name),
			Details:  models.JSONB{"tenant_id": t.ID.String(), "plan": t.Plan},
		})
		report.Results = append(report.Results, models.TestResult{
			Name:     "tenant_limits_finite",
			Passed:   !t.HasSentinelLimits(),
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("tenant %s limits must be finite and positive", t.Name),
			Details: models.JSONB{
				"tenant_id":     t.ID.String(),
				"max_users":     t.MaxUsers,
				"max_products":  t.Settings.MaxProducts,
				"max_templates": t.Settings.MaxTemplates,
			},
		})
	}
}

// checkStorageConsistency compares the durable session copy against the
// in-process identity store. Divergence between the two is exactly the
// tampering signal the dual-storage design exists to catch.
func (v *validatorService) checkStorageConsistency(ctx context.Context, report *models.ValidationReport, principal *models.Principal, tokenID string) {
	if tokenID == "" {
		return
	}

	stored, err := v.cacheSvc.GetSessionPrincipal(ctx, tokenID)
	if err != nil {
		report.Results = append(report.Results, models.TestResult{
			Name:     "durable_session_readable",
			Passed:   false,
			Severity: models.SeverityHigh,
			Message:  "durable session copy missing or unreadable",
			Details:  models.JSONB{"error": err.Error()},
		})
		return
	}
	report.Results = append(report.Results, models.TestResult{
		Name:     "durable_session_readable",
		Passed:   true,
		Severity: models.SeverityHigh,
		Message:  "durable session copy readable",
	})

	live, ok := v.identityStore.Get(tokenID)
	if !ok {
		report.Results = append(report.Results, models.TestResult{
			Name:     "identity_store_entry_present",
			Passed:   false,
			Severity: models.SeverityMedium,
			Message:  "no in-process identity entry for session",
		})
		return
	}

	report.Results = append(report.Results, models.TestResult{
		Name:     "session_copies_agree",
		Passed:   stored.Equal(live),
		Severity: models.SeverityHigh,
		Message:  "durable and in-process session copies must agree on identity",
	})

	if principal != nil {
		report.Results = append(report.Results, models.TestResult{
			Name:     "request_principal_matches_session",
			Passed:   principal.Equal(live),
			Severity: models.SeverityHigh,
			Message:  "request principal must match the stored session identity",
		})
	}
}
