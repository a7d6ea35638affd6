package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
)

// User represents a stored credential record.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	Role         rbac.Role
	Code         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	UserName  string
	Role      rbac.Role
}

// RegisterInput carries a signup request.
type RegisterInput struct {
	UserName string `json:"userName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,max=16"`
}

// Registration is the public view of a newly registered user.
type Registration struct {
	ID       string
	UserName string
	Email    string
	Role     rbac.Role
	Code     string
}
