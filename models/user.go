// Package models contains domain entities and business models for the academy ledger
package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole gates what a user may call
type UserRole string

const (
	UserRoleOwner  UserRole = "OWNER"
	UserRoleSeller UserRole = "SELLER"
	UserRoleAdmin  UserRole = "ADMIN"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleOwner, UserRoleSeller, UserRoleAdmin:
		return true
	}
	return false
}

// User is an account able to sign in
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;uniqueIndex:uk_users_uuid;not null" json:"uuid"`
	Email        string     `gorm:"size:255;uniqueIndex:uk_users_email;not null" json:"email"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Role         UserRole   `gorm:"size:20;not null;index:idx_users_role" json:"role"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     *bool      `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID       *uint
	Email    *string
	Role     *UserRole
	IsActive *bool
}

// IsOwner reports whether the user has full access
func (u *User) IsOwner() bool {
	return u.Role == UserRoleOwner || u.Role == UserRoleAdmin
}
