package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tenantcore/internal/caching"
	"tenantcore/internal/models"
)

// fakeCacheService is an in-memory stand-in for the redis cache. It keeps
// raw principal JSON so tests can corrupt the stored payload directly.
type fakeCacheService struct {
	mu             sync.Mutex
	tokens         map[string]string
	principals     map[string]string
	tenantOrigins  map[string]*models.Tenant
	strings        map[string]string
	rateLimitHits  map[string]int
	forceRateLimit bool
}

var _ caching.CacheService = (*fakeCacheService)(nil)

func newFakeCacheService() *fakeCacheService {
	return &fakeCacheService{
		tokens:        make(map[string]string),
		principals:    make(map[string]string),
		tenantOrigins: make(map[string]*models.Tenant),
		strings:       make(map[string]string),
		rateLimitHits: make(map[string]int),
	}
}

func (f *fakeCacheService) SetSession(_ context.Context, tokenID, token string, principal *models.Principal, _ time.Duration) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenID] = token
	f.principals[tokenID] = string(data)
	return nil
}

func (f *fakeCacheService) GetSessionToken(_ context.Context, tokenID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok {
		return "", models.ErrSessionNotFound
	}
	return token, nil
}

func (f *fakeCacheService) GetSessionPrincipal(_ context.Context, tokenID string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.principals[tokenID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	var principal models.Principal
	if err := json.Unmarshal([]byte(raw), &principal); err != nil {
		return nil, models.ErrSessionCorrupted
	}
	return &principal, nil
}

func (f *fakeCacheService) GetRawSessionPrincipal(_ context.Context, tokenID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.principals[tokenID]
	if !ok {
		return "", models.ErrSessionNotFound
	}
	return raw, nil
}

func (f *fakeCacheService) DeleteSession(_ context.Context, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tokenID)
	delete(f.principals, tokenID)
	return nil
}

func (f *fakeCacheService) GetTenantByOrigin(_ context.Context, subdomain string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tenantOrigins[subdomain], nil
}

func (f *fakeCacheService) SetTenantByOrigin(_ context.Context, subdomain string, tenant *models.Tenant, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantOrigins[subdomain] = tenant
	return nil
}

func (f *fakeCacheService) InvalidateTenantOrigin(_ context.Context, subdomain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tenantOrigins, subdomain)
	return nil
}

func (f *fakeCacheService) IsRateLimited(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceRateLimit {
		return true, nil
	}
	f.rateLimitHits[key]++
	return f.rateLimitHits[key] > limit, nil
}

func (f *fakeCacheService) SetString(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = value
	return nil
}

func (f *fakeCacheService) GetString(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strings[key], nil
}

func (f *fakeCacheService) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strings, key)
	return nil
}

// corruptPrincipal overwrites the stored principal JSON for a session.
func (f *fakeCacheService) corruptPrincipal(tokenID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.principals[tokenID] = "{not valid json"
}

// recordedEvent captures one call to the event service.
type recordedEvent struct {
	EventType string
	Principal *models.Principal
	Details   models.JSONB
	Severity  models.Severity
}

// fakeEventService collects recorded events in order.
type fakeEventService struct {
	mu     sync.Mutex
	events []recordedEvent
}

var _ SecurityEventService = (*fakeEventService)(nil)

func newFakeEventService() *fakeEventService {
	return &fakeEventService{}
}

func (f *fakeEventService) Record(_ context.Context, eventType string, principal *models.Principal, details models.JSONB, severity models.Severity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{
		EventType: eventType,
		Principal: principal,
		Details:   details,
		Severity:  severity,
	})
	return nil
}

func (f *fakeEventService) RecordDecision(ctx context.Context, principal *models.Principal, decision models.AccessDecision) error {
	if decision.Allowed {
		return nil
	}
	return f.Record(ctx, models.EventOperationDenied, principal, models.JSONB{
		"operation": decision.Operation,
		"reason":    decision.Reason,
	}, models.SeverityMedium)
}

func (f *fakeEventService) List(context.Context, *models.SecurityEventFilters) ([]*models.SecurityEvent, error) {
	return nil, nil
}

func (f *fakeEventService) ShipBatch(context.Context, int) (int, error) {
	return 0, nil
}

func (f *fakeEventService) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

func (f *fakeEventService) hasEvent(eventType string) bool {
	for _, t := range f.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}
