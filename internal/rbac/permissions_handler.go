package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-hr/internal/platform/httpx"
)

// PermissionsHandler exposes the caller's effective rules.
type PermissionsHandler struct {
	registry *Registry
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(registry *Registry, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{registry: registry, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.listPermissions)
	})
}

type permissionsResponse struct {
	Role  Role   `json:"role"`
	Rules []Rule `json:"rules"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		Role:  principal.Role,
		Rules: h.registry.RulesFor(principal.Role),
	})
}
