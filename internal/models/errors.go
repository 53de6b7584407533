package models

import "errors"

// Authentication failures. Recoverable: the caller may retry with different
// credentials.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrNotAMasterAccount  = errors.New("account is not a master account")
)

// Structural violations. CRITICAL: any of these forces session termination.
var (
	ErrNoPrincipal     = errors.New("no authenticated principal")
	ErrInvalidRole     = errors.New("unknown principal role")
	ErrMasterHasTenant = errors.New("master principal carries a tenant association")
	ErrMissingTenant   = errors.New("tenant-scoped principal has no tenant")
	ErrRoleTransition  = errors.New("session role or tenant changed without re-authentication")
)

// Session and resolution faults.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCorrupted = errors.New("stored session payload is corrupted")
	ErrTenantNotResolved = errors.New("no tenant could be resolved from request origin")
	ErrSentinelLimits   = errors.New("tenant limits must be finite and positive")
)
