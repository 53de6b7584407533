package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tenantcore/internal/caching"
	"tenantcore/internal/identity"
	"tenantcore/internal/models"
	"tenantcore/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer = "tenantcore-auth"

	// Login throttling defaults, overridable via config.
	defaultRateLimitAttempts = 5
	defaultRateLimitWindow   = 5 * time.Minute
)

// SessionService owns the full session lifecycle: login, master login,
// restore, logout. Every session exists in two places at once, durable
// storage (redis) and the in-process identity store, and this service is
// the only writer to both.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	LoginAsMaster(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Logout(ctx context.Context, tokenString string) error
	RestoreSession(ctx context.Context, tokenString string) (*models.Session, error)
	CurrentPrincipal(ctx context.Context, tokenString string) (*models.Principal, string, error)
	ParseToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents JWT claims for a session token
type SessionClaims struct {
	UserID   string  `json:"user_id"`
	Role     string  `json:"role"`
	TenantID *string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

type sessionService struct {
	userRepo          repositories.UserRepository
	cacheSvc          caching.CacheService
	identityStore     *identity.Store
	eventSvc          SecurityEventService
	jwtSecret         []byte
	tokenTTL          time.Duration
	rateLimitAttempts int
	rateLimitWindow   time.Duration
}

// NewSessionService creates the session lifecycle service.
func NewSessionService(userRepo repositories.UserRepository, cacheSvc caching.CacheService,
	identityStore *identity.Store, eventSvc SecurityEventService,
	jwtSecret string, tokenTTLSeconds, rateLimitAttempts, rateLimitWindowSeconds int) SessionService {

	svc := &sessionService{
		userRepo:          userRepo,
		cacheSvc:          cacheSvc,
		identityStore:     identityStore,
		eventSvc:          eventSvc,
		jwtSecret:         []byte(jwtSecret),
		tokenTTL:          time.Duration(tokenTTLSeconds) * time.Second,
		rateLimitAttempts: rateLimitAttempts,
		rateLimitWindow:   time.Duration(rateLimitWindowSeconds) * time.Second,
	}
	if svc.rateLimitAttempts <= 0 {
		svc.rateLimitAttempts = defaultRateLimitAttempts
	}
	if svc.rateLimitWindow <= 0 {
		svc.rateLimitWindow = defaultRateLimitWindow
	}
	return svc
}

// Login authenticates a tenant-scoped account. Master accounts must use
// LoginAsMaster; this entry point refuses them with the same generic error
// as a bad password to avoid disclosing account classes.
func (s *sessionService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if user.Role == models.RoleMaster {
		s.recordEvent(ctx, models.EventLoginFailed, nil, models.JSONB{
			"email":  email,
			"reason": "master account on tenant login endpoint",
		}, models.SeverityMedium)
		return nil, models.ErrInvalidCredentials
	}

	principal := user.Principal()
	if err := principal.ValidateStructure(); err != nil {
		s.recordEvent(ctx, models.EventUserWithoutTenantID, principal, models.JSONB{
			"email": email,
			"error": err.Error(),
		}, models.SeverityCritical)
		return nil, err
	}

	return s.issueSession(ctx, principal)
}

// LoginAsMaster authenticates a platform operator. The stored account must
// carry the master role and no tenant affiliation; a master row with a
// tenant_id is a CRITICAL structural fault and never produces a session.
func (s *sessionService) LoginAsMaster(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.recordEvent(ctx, models.EventMasterLoginFailed, nil, models.JSONB{
				"email": email,
			}, models.SeverityHigh)
		}
		return nil, err
	}

	if user.Role != models.RoleMaster {
		s.recordEvent(ctx, models.EventMasterLoginFailed, nil, models.JSONB{
			"email":  email,
			"reason": "not a master account",
		}, models.SeverityHigh)
		return nil, models.ErrNotAMasterAccount
	}

	principal := user.Principal()
	if err := principal.ValidateStructure(); err != nil {
		s.recordEvent(ctx, models.EventMasterWithTenantID, principal, models.JSONB{
			"email": email,
			"error": err.Error(),
		}, models.SeverityCritical)
		return nil, err
	}

	resp, err := s.issueSession(ctx, principal)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, models.EventMasterLoginSuccess, principal, models.JSONB{
		"email": email,
	}, models.SeverityLow)
	return resp, nil
}

// authenticate resolves the account and checks throttling, password and
// status. Shared by both login entry points.
func (s *sessionService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	limited, err := s.cacheSvc.IsRateLimited(ctx, "login:"+email, s.rateLimitAttempts, s.rateLimitWindow)
	if err == nil && limited {
		s.recordEvent(ctx, models.EventLoginThrottled, nil, models.JSONB{
			"email": email,
		}, models.SeverityMedium)
		return nil, models.ErrRateLimited
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			s.recordEvent(ctx, models.EventLoginFailed, nil, models.JSONB{
				"email":  email,
				"reason": "unknown account",
			}, models.SeverityLow)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordEvent(ctx, models.EventLoginFailed, nil, models.JSONB{
			"email":  email,
			"reason": "password mismatch",
		}, models.SeverityLow)
		return nil, models.ErrInvalidCredentials
	}

	if user.Status != "active" {
		s.recordEvent(ctx, models.EventLoginFailed, nil, models.JSONB{
			"email":  email,
			"reason": "account not active",
			"status": user.Status,
		}, models.SeverityMedium)
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// issueSession mints the JWT and writes the session to both stores. If the
// durable write fails the session is not considered established.
func (s *sessionService) issueSession(ctx context.Context, principal *models.Principal) (*models.LoginResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()
	expiresAt := now.Add(s.tokenTTL)

	claims := SessionClaims{
		UserID: principal.ID.String(),
		Role:   string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   principal.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}
	if principal.TenantID != nil {
		tid := principal.TenantID.String()
		claims.TenantID = &tid
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %v", err)
	}

	if err := s.cacheSvc.SetSession(ctx, tokenID, tokenString, principal, s.tokenTTL); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := s.identityStore.Put(tokenID, principal, now, expiresAt); err != nil {
		// Roll back the durable copy so the two stores stay in step.
		_ = s.cacheSvc.DeleteSession(ctx, tokenID)
		return nil, err
	}

	return &models.LoginResponse{
		Token:     tokenString,
		TokenType: "Bearer",
		ExpiresIn: int(s.tokenTTL.Seconds()),
		Principal: principal,
		IssuedAt:  now,
	}, nil
}

// Logout tears the session down in both stores. Logging out an absent or
// already expired session is a no-op, never an error.
func (s *sessionService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		// An unparseable token has no stored session to remove.
		return nil
	}
	tokenID := claims.RegisteredClaims.ID
	s.identityStore.Delete(tokenID)
	if err := s.cacheSvc.DeleteSession(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to clear durable session: %w", err)
	}
	return nil
}

// RestoreSession rebuilds the in-process session from durable storage, the
// path a process restart or a fresh node takes. A corrupt stored principal
// clears the whole session and reports ErrSessionCorrupted; the caller must
// force re-authentication rather than guess at identity.
func (s *sessionService) RestoreSession(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	tokenID := claims.RegisteredClaims.ID

	storedToken, err := s.cacheSvc.GetSessionToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if storedToken != tokenString {
		s.purgeSession(ctx, tokenID)
		s.recordEvent(ctx, models.EventSessionUserIDMismatch, nil, models.JSONB{
			"token_id": tokenID,
			"reason":   "stored token differs from presented token",
		}, models.SeverityHigh)
		return nil, models.ErrSessionNotFound
	}

	principal, err := s.cacheSvc.GetSessionPrincipal(ctx, tokenID)
	if err != nil {
		if errors.Is(err, models.ErrSessionCorrupted) {
			s.purgeSession(ctx, tokenID)
			s.recordEvent(ctx, models.EventSessionParseError, nil, models.JSONB{
				"token_id": tokenID,
			}, models.SeverityHigh)
		}
		return nil, err
	}

	if err := principal.ValidateStructure(); err != nil {
		s.purgeSession(ctx, tokenID)
		s.recordEvent(ctx, models.EventForcedTermination, principal, models.JSONB{
			"token_id": tokenID,
			"error":    err.Error(),
		}, models.SeverityCritical)
		return nil, err
	}

	issuedAt := claims.RegisteredClaims.IssuedAt.Time
	expiresAt := claims.RegisteredClaims.ExpiresAt.Time
	if err := s.identityStore.Put(tokenID, principal, issuedAt, expiresAt); err != nil {
		s.purgeSession(ctx, tokenID)
		s.recordEvent(ctx, models.EventRoleTransition, principal, models.JSONB{
			"token_id": tokenID,
		}, models.SeverityCritical)
		return nil, err
	}

	return &models.Session{
		Token:     tokenString,
		Principal: principal,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// CurrentPrincipal returns the live principal for a token plus the token id,
// restoring from durable storage when the in-process copy is missing.
func (s *sessionService) CurrentPrincipal(ctx context.Context, tokenString string) (*models.Principal, string, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, "", err
	}
	tokenID := claims.RegisteredClaims.ID

	if principal, ok := s.identityStore.Get(tokenID); ok {
		return principal, tokenID, nil
	}
	session, err := s.RestoreSession(ctx, tokenString)
	if err != nil {
		return nil, "", err
	}
	return session.Principal, tokenID, nil
}

// ParseToken verifies signature, expiry and issuer and returns the claims.
func (s *sessionService) ParseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.RegisteredClaims.ID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// purgeSession removes both copies of a session without ceremony.
func (s *sessionService) purgeSession(ctx context.Context, tokenID string) {
	s.identityStore.Delete(tokenID)
	_ = s.cacheSvc.DeleteSession(ctx, tokenID)
}

// recordEvent appends an audit event, logging rather than failing the caller
// when the append itself fails. Login flows must not be blocked by an audit
// sink outage; the failure is still visible in process logs.
func (s *sessionService) recordEvent(ctx context.Context, eventType string, principal *models.Principal, details models.JSONB, severity models.Severity) {
	if s.eventSvc == nil {
		return
	}
	if err := s.eventSvc.Record(ctx, eventType, principal, details, severity); err != nil {
		log.Printf("Failed to record security event %s: %v", eventType, err)
	}
}
