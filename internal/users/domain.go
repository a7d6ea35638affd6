package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
)

// User is the account view exposed to administrators. Password hashes never leave the auth package.
type User struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"userName"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is one slice of the user listing.
type Page struct {
	Items      []User `json:"items"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}
