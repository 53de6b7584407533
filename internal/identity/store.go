// Package identity holds the in-process copy of every live session. It is
// the second copy the session integrity check compares against durable
// storage; the two must agree field for field.
package identity

import (
	"sync"
	"time"

	"tenantcore/internal/models"
)

// Store maps session tokens to principals for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	principal *models.Principal
	issuedAt  time.Time
	expiresAt time.Time
}

// NewStore creates an empty identity store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Put records a principal for a token. If the token already exists and the
// stored principal's id, role or tenant differ, the stored copy is left
// untouched and ErrRoleTransition is returned: a session may never change
// identity without a fresh login.
func (s *Store) Put(token string, p *models.Principal, issuedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[token]; ok {
		if !existing.principal.Equal(p) {
			return models.ErrRoleTransition
		}
	}
	s.sessions[token] = &entry{principal: p, issuedAt: issuedAt, expiresAt: expiresAt}
	return nil
}

// Get returns the principal for a token.
func (s *Store) Get(token string) (*models.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	return e.principal, true
}

// Delete removes a token. Deleting an absent token is a no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Snapshot returns the live sessions as token→principal for audit sweeps.
func (s *Store) Snapshot() map[string]*models.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]*models.Principal, len(s.sessions))
	for token, e := range s.sessions {
		snap[token] = e.principal
	}
	return snap
}

// PurgeExpired removes sessions past their expiry and returns how many were
// dropped.
func (s *Store) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for token, e := range s.sessions {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.sessions, token)
			purged++
		}
	}
	return purged
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
