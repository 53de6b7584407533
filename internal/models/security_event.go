package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a security event or audit finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Security event types. The SESSION_*_MISMATCH family is HIGH and keeps the
// session alive; the structural-violation family is CRITICAL and ends it.
const (
	EventLoginFailed        = "LOGIN_FAILED"
	EventLoginThrottled     = "LOGIN_THROTTLED"
	EventMasterLoginSuccess = "MASTER_LOGIN_SUCCESS"
	EventMasterLoginFailed  = "MASTER_LOGIN_FAILED"

	EventOperationDenied          = "OPERATION_DENIED"
	EventCrossTenantAccess        = "API_CROSS_TENANT_ACCESS"
	EventMasterTenantParam        = "MASTER_TENANT_PARAM_ON_DATA_CALL"
	EventMasterWithTenantID       = "MASTER_WITH_TENANT_ID"
	EventUserWithoutTenantID      = "USER_WITHOUT_TENANT_ID"
	EventRoleTransition           = "SESSION_ROLE_TRANSITION"
	EventTenantIsolationViolation = "TENANT_ISOLATION_VIOLATION"
	EventForcedTermination        = "FORCED_SESSION_TERMINATION"

	EventSessionUserIDMismatch   = "SESSION_USER_ID_MISMATCH"
	EventSessionTenantIDMismatch = "SESSION_TENANT_ID_MISMATCH"
	EventSessionRoleMismatch     = "SESSION_ROLE_MISMATCH"
	EventSessionParseError       = "SESSION_PARSE_ERROR"

	EventMasterTenantAreaAccess = "MASTER_TENANT_AREA_ACCESS"
	EventNonMasterAreaAccess    = "NON_MASTER_AREA_ACCESS"

	EventAuditSweepFailed = "AUDIT_SWEEP_FAILED"
)

// SecurityEvent is an append-only audit record. Seq is monotonic within one
// principal's event stream; events are never mutated or deleted by the
// application.
type SecurityEvent struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	Seq       int64              `json:"seq" db:"seq"`
	Timestamp time.Time          `json:"timestamp" db:"created_at"`
	EventType string             `json:"event" db:"event_type"`
	Principal *PrincipalSnapshot `json:"principal,omitempty"`
	Details   JSONB              `json:"details" db:"details"`
	Severity  Severity           `json:"severity" db:"severity"`
	Shipped   bool               `json:"-" db:"shipped"`
}

// SecurityEventFilters narrows event listing for the master audit endpoint.
type SecurityEventFilters struct {
	EventType   *string    `json:"event_type"`
	Severity    *Severity  `json:"severity"`
	PrincipalID *uuid.UUID `json:"principal_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Limit       int        `json:"limit"`
	Offset      int        `json:"offset"`
}
