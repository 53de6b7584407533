package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFinalize_PassRequiresNoCriticalOrHigh(t *testing.T) {
	now := time.Now()

	t.Run("all passed", func(t *testing.T) {
		r := &ValidationReport{Results: []TestResult{
			{Name: "a", Passed: true, Severity: SeverityCritical},
			{Name: "b", Passed: true, Severity: SeverityHigh},
		}}
		r.Finalize(now)
		assert.Equal(t, ReportPass, r.OverallStatus)
		assert.Equal(t, 2, r.PassedTests)
		assert.Equal(t, 0, r.FailedTests)
	})

	t.Run("medium and low failures still pass", func(t *testing.T) {
		r := &ValidationReport{Results: []TestResult{
			{Name: "a", Passed: true, Severity: SeverityCritical},
			{Name: "b", Passed: false, Severity: SeverityMedium},
			{Name: "c", Passed: false, Severity: SeverityLow},
		}}
		r.Finalize(now)
		assert.Equal(t, ReportPass, r.OverallStatus)
		assert.Equal(t, 2, r.FailedTests)
		assert.Equal(t, 0, r.CriticalIssues)
		assert.Equal(t, 0, r.HighIssues)
	})

	t.Run("one high fails", func(t *testing.T) {
		r := &ValidationReport{Results: []TestResult{
			{Name: "a", Passed: true, Severity: SeverityCritical},
			{Name: "b", Passed: false, Severity: SeverityHigh},
		}}
		r.Finalize(now)
		assert.Equal(t, ReportFail, r.OverallStatus)
		assert.Equal(t, 1, r.HighIssues)
	})

	t.Run("one critical fails", func(t *testing.T) {
		r := &ValidationReport{Results: []TestResult{
			{Name: "a", Passed: false, Severity: SeverityCritical},
		}}
		r.Finalize(now)
		assert.Equal(t, ReportFail, r.OverallStatus)
		assert.Equal(t, 1, r.CriticalIssues)
	})

	t.Run("empty report passes", func(t *testing.T) {
		r := &ValidationReport{}
		r.Finalize(now)
		assert.Equal(t, ReportPass, r.OverallStatus)
		assert.Equal(t, 0, r.TotalTests)
	})
}

func TestHasSentinelLimits(t *testing.T) {
	healthy := &Tenant{MaxUsers: 10, Settings: TenantSettings{MaxProducts: 100, MaxTemplates: 20}}
	assert.False(t, healthy.HasSentinelLimits())

	for _, tenant := range []*Tenant{
		{MaxUsers: -1, Settings: TenantSettings{MaxProducts: 100, MaxTemplates: 20}},
		{MaxUsers: 0, Settings: TenantSettings{MaxProducts: 100, MaxTemplates: 20}},
		{MaxUsers: 10, Settings: TenantSettings{MaxProducts: -1, MaxTemplates: 20}},
		{MaxUsers: 10, Settings: TenantSettings{MaxProducts: 100, MaxTemplates: 0}},
	} {
		assert.True(t, tenant.HasSentinelLimits())
	}
}
