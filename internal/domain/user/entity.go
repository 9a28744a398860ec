package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the marketplace
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is the read-side view of an account owned by the identity service.
type User struct {
	ID              uuid.UUID `db:"id"`
	Email           string    `db:"email"`
	FullName        string    `db:"full_name"`
	Phone           string    `db:"phone"`
	Role            Role      `db:"role"`
	StudentVerified bool      `db:"student_verified"`
	IsBanned        bool      `db:"is_banned"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanTrade reports whether the account may buy, sell or move wallet funds.
func (u *User) CanTrade() bool {
	return u.StudentVerified && !u.IsBanned
}

// DisplayName falls back to the e-mail local part when no name is set.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
