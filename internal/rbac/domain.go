package rbac

import (
	"fmt"
	"strings"
)

// Role names a profile of permission rules.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	// RoleAnonymous is assigned to callers without a valid token. It never
	// appears in tokens and has no profile.
	RoleAnonymous Role = "ANONYMOUS"
)

// Tokenable reports whether the role is spelled exactly as one a token may carry.
func (r Role) Tokenable() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole accepts the roles that may be carried by a token or requested at signup.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("rbac: unknown role %q", raw)
	}
}

// Operation is one of the four data operations a rule can grant.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations lists every operation in a stable order.
func Operations() []Operation {
	return []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
}

func (o Operation) valid() bool {
	switch o {
	case OpCreate, OpRead, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Rule is the verdict for one (model, operation) pair within a profile.
type Rule struct {
	Model     string    `json:"model"`
	Operation Operation `json:"operation"`
	Allowed   bool      `json:"allowed"`
}

// Access is the CRUD block used to declare a profile per model.
type Access struct {
	Create bool
	Read   bool
	Update bool
	Delete bool
}

// Grant expands an Access block into one rule per operation.
func Grant(model string, access Access) []Rule {
	return []Rule{
		{Model: model, Operation: OpCreate, Allowed: access.Create},
		{Model: model, Operation: OpRead, Allowed: access.Read},
		{Model: model, Operation: OpUpdate, Allowed: access.Update},
		{Model: model, Operation: OpDelete, Allowed: access.Delete},
	}
}

// Principal describes the caller of one request.
type Principal struct {
	ID   string
	Role Role
}

// Anonymous returns the zero-permission principal.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

// IsAnonymous reports whether the principal carries no identity.
func (p Principal) IsAnonymous() bool {
	return p.Role == RoleAnonymous || p.Role == ""
}

// Decision is the outcome of a single access check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }
