package services

import (
	"context"
	"testing"
	"time"

	"tenantcore/internal/identity"
	"tenantcore/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ValidatorServiceTestSuite struct {
	suite.Suite
	cache         *fakeCacheService
	identityStore *identity.Store
	service       ValidatorService

	tenant *models.Tenant
}

func (suite *ValidatorServiceTestSuite) SetupTest() {
	suite.cache = newFakeCacheService()
	suite.identityStore = identity.NewStore()
	suite.service = NewValidatorService(suite.cache, suite.identityStore)
	suite.tenant = &models.Tenant{
		ID:        uuid.New(),
		Name:      "Acme",
		Subdomain: "acme",
		Plan:      models.PlanBasic,
		MaxUsers:  10,
		IsActive:  true,
		Settings:  models.TenantSettings{MaxProducts: 100, MaxTemplates: 20},
	}
}

func TestValidatorServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ValidatorServiceTestSuite))
}

// storeSession puts a consistent session in both stores and returns the
// token id.
func (suite *ValidatorServiceTestSuite) storeSession(principal *models.Principal) string {
	tokenID := uuid.NewString()
	now := time.Now()
	suite.Require().NoError(suite.cache.SetSession(context.Background(), tokenID, "jwt", principal, time.Hour))
	suite.Require().NoError(suite.identityStore.Put(tokenID, principal, now, now.Add(time.Hour)))
	return tokenID
}

func (suite *ValidatorServiceTestSuite) TestHealthySessionPasses() {
	ctx := context.Background()
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, suite.tenant.ID)
	tokenID := suite.storeSession(principal)

	report := suite.service.RunFullValidation(ctx, principal, tokenID, suite.tenant, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportPass, report.OverallStatus)
	assert.Equal(suite.T(), 0, report.CriticalIssues)
	assert.Equal(suite.T(), 0, report.HighIssues)
	assert.Equal(suite.T(), report.TotalTests, report.PassedTests)
	assert.False(suite.T(), report.Timestamp.IsZero())
}

func (suite *ValidatorServiceTestSuite) TestMasterWithTenantContextIsCritical() {
	ctx := context.Background()
	master := models.NewMasterPrincipal(uuid.New(), "Operator", "ops@platform.test")
	tokenID := suite.storeSession(master)

	report := suite.service.RunFullValidation(ctx, master, tokenID, suite.tenant, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assert.GreaterOrEqual(suite.T(), report.CriticalIssues, 1)
	assertFinding(suite.T(), report, "master_has_no_tenant_context", false)
}

func (suite *ValidatorServiceTestSuite) TestMasterWithTenantIDIsCritical() {
	ctx := context.Background()
	master := models.NewMasterPrincipal(uuid.New(), "Operator", "ops@platform.test")
	tid := suite.tenant.ID
	master.TenantID = &tid
	tokenID := suite.storeSession(master)

	report := suite.service.RunFullValidation(ctx, master, tokenID, nil, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assertFinding(suite.T(), report, "master_has_no_tenant", false)
}

func (suite *ValidatorServiceTestSuite) TestUserInWrongTenantContextIsCritical() {
	ctx := context.Background()
	otherTenant := &models.Tenant{
		ID: uuid.New(), Name: "Rival", Subdomain: "rival", Plan: models.PlanBasic,
		MaxUsers: 5, IsActive: true,
		Settings: models.TenantSettings{MaxProducts: 10, MaxTemplates: 5},
	}
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, suite.tenant.ID)
	tokenID := suite.storeSession(principal)

	report := suite.service.RunFullValidation(ctx, principal, tokenID, otherTenant, []*models.Tenant{suite.tenant, otherTenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assertFinding(suite.T(), report, "user_in_own_tenant_context", false)
}

func (suite *ValidatorServiceTestSuite) TestSentinelLimitsAreHighAndFailTheReport() {
	ctx := context.Background()
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, suite.tenant.ID)
	tokenID := suite.storeSession(principal)

	unlimited := &models.Tenant{
		ID: uuid.New(), Name: "Unlimited Corp", Subdomain: "unlimited", Plan: models.PlanEnterprise,
		MaxUsers: -1, IsActive: true,
		Settings: models.TenantSettings{MaxProducts: 100, MaxTemplates: 20},
	}

	report := suite.service.RunFullValidation(ctx, principal, tokenID, suite.tenant, []*models.Tenant{suite.tenant, unlimited})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assert.Equal(suite.T(), 0, report.CriticalIssues)
	assert.GreaterOrEqual(suite.T(), report.HighIssues, 1)

	failed := findResult(report, "tenant_limits_finite", false)
	require.NotNil(suite.T(), failed)
	assert.Equal(suite.T(), models.SeverityHigh, failed.Severity)
	assert.Equal(suite.T(), -1, failed.Details["max_users"])
}

func (suite *ValidatorServiceTestSuite) TestUnknownTenantIsHigh() {
	ctx := context.Background()
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, uuid.New())
	tokenID := suite.storeSession(principal)

	report := suite.service.RunFullValidation(ctx, principal, tokenID, nil, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assertFinding(suite.T(), report, "principal_tenant_exists", false)
}

func (suite *ValidatorServiceTestSuite) TestStorageDivergenceIsHigh() {
	ctx := context.Background()
	principal := models.NewTenantPrincipal(uuid.New(), "Member", "m@acme.test", models.RoleMember, suite.tenant.ID)
	tokenID := suite.storeSession(principal)

	// Tamper with the in-process copy after the durable write.
	suite.identityStore.Delete(tokenID)
	impostor := models.NewTenantPrincipal(uuid.New(), "Impostor", "x@acme.test", models.RoleAdmin, suite.tenant.ID)
	now := time.Now()
	suite.Require().NoError(suite.identityStore.Put(tokenID, impostor, now, now.Add(time.Hour)))

	report := suite.service.RunFullValidation(ctx, principal, tokenID, suite.tenant, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assertFinding(suite.T(), report, "session_copies_agree", false)
}

func (suite *ValidatorServiceTestSuite) TestNoPrincipalIsCritical() {
	ctx := context.Background()
	report := suite.service.RunFullValidation(ctx, nil, "", nil, []*models.Tenant{suite.tenant})

	assert.Equal(suite.T(), models.ReportFail, report.OverallStatus)
	assertFinding(suite.T(), report, "principal_present", false)
}

func findResult(report *models.ValidationReport, name string, passed bool) *models.TestResult {
	for i := range report.Results {
		if report.Results[i].Name == name && report.Results[i].Passed == passed {
			return &report.Results[i]
		}
	}
	return nil
}

func assertFinding(t *testing.T, report *models.ValidationReport, name string, passed bool) {
	t.Helper()
	assert.NotNil(t, findResult(report, name, passed), "expected %s with passed=%v", name, passed)
}
