package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the stored account record behind a principal. Master accounts have
// a NULL tenant_id; tenant accounts always carry one. The CHECK constraint on
// the users table mirrors Principal.ValidateStructure.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never serialize in JSON
	DisplayName  string     `json:"display_name" db:"display_name"`
	Role         Role       `json:"role" db:"role"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Principal projects the stored user into a session principal.
func (u *User) Principal() *Principal {
	p := &Principal{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Role:        u.Role,
	}
	if u.TenantID != nil {
		tid := *u.TenantID
		p.TenantID = &tid
	}
	return p
}
