package models

import "github.com/google/uuid"

// AccessDecision is the per-call result of the policy engine. Decisions are
// ephemeral; every denial is forwarded to the security event log by the
// caller, never by the policy engine itself.
type AccessDecision struct {
	Allowed   bool       `json:"allowed"`
	Operation string     `json:"operation"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Allow builds an allowing decision.
func Allow(operation string, tenantID *uuid.UUID) AccessDecision {
	return AccessDecision{Allowed: true, Operation: operation, TenantID: tenantID}
}

// Deny builds a denying decision with a reason for the audit trail. The
// reason stays in the log; callers surface only a generic refusal.
func Deny(operation string, tenantID *uuid.UUID, reason string) AccessDecision {
	return AccessDecision{Allowed: false, Operation: operation, TenantID: tenantID, Reason: reason}
}
