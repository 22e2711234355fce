package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of marketplace roles
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole converts a stored role value into a Role
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(s)) {
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

// UserProfile holds the marketplace-facing identity of an authenticated user.
// Authentication itself happens upstream; only the role assignment lives here.
type UserProfile struct {
	UserID      string    `db:"user_id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	Role        Role      `db:"role" json:"role"`
	PhoneNumber string    `db:"phone_number" json:"phone_number,omitempty"`
	Address     string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
