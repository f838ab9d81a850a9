package models

import (
	"time"

	"github.com/pkg/errors"
)

// ErrDuplicateEmail is returned by invite stores when a write collides
// with the global uniqueness constraint on email. Callers treat it as
// "already exists", never as a hard failure.
var ErrDuplicateEmail = errors.New("invite email already exists")

// ErrInviteNotFound is returned by invite stores when no invite matches.
var ErrInviteNotFound = errors.New("invite not found")

// ProfileInvite is a pending invitation for an employee to register.
// Email is unique across the whole system, not per company; the unique
// index on lower(email) is the final authority for duplicates.
type ProfileInvite struct {
	ID          string     `json:"id" db:"id"`
	CompanyID   string     `json:"company_id" db:"company_id"`
	Email       string     `json:"email" db:"email"`
	FirstName   *string    `json:"first_name,omitempty" db:"first_name"`
	LastName    *string    `json:"last_name,omitempty" db:"last_name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Department  *string    `json:"department,omitempty" db:"department"`
	HireDate    *time.Time `json:"hire_date,omitempty" db:"hire_date"`
	InvitedAt   time.Time  `json:"invited_at" db:"invited_at"`
}

// OTPCode is a short-lived passwordless sign-in code. Only the bcrypt
// hash is stored; the plain code leaves the system via email.
type OTPCode struct {
	ID         string     `json:"id" db:"id"`
	Email      string     `json:"email" db:"email"`
	CodeHash   string     `json:"-" db:"code_hash"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired determines whether the code can no longer be redeemed.
func (c OTPCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsUsed indicates whether the code has already been redeemed.
func (c OTPCode) IsUsed() bool {
	return c.ConsumedAt != nil
}
