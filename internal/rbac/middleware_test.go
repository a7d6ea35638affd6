package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(BuiltinModels()...)
	for role, rules := range DefaultProfiles() {
		require.NoError(t, reg.Register(role, rules))
	}
	return reg
}

func serveWithPrincipal(h http.Handler, p Principal, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), p))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareRequire(t *testing.T) {
	mw := Middleware{Enforcer: NewEnforcer(newDefaultRegistry(t), nil, nil)}
	called := 0
	h := mw.Require(ModelEmployee, OpDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := serveWithPrincipal(h, Principal{ID: "1", Role: RoleAdmin}, http.MethodDelete, "/employees/1")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	denied := serveWithPrincipal(h, Principal{ID: "2", Role: RoleUser}, http.MethodDelete, "/employees/1")
	assert.Equal(t, http.StatusForbidden, denied.Code)

	anon := serveWithPrincipal(h, Anonymous(), http.MethodDelete, "/employees/1")
	assert.Equal(t, http.StatusForbidden, anon.Code)
	assert.Equal(t, denied.Body.String(), anon.Body.String(), "denials must be indistinguishable")

	assert.Equal(t, 1, called)
}

func TestMiddlewareRequireAuthenticated(t *testing.T) {
	mw := Middleware{Enforcer: NewEnforcer(newDefaultRegistry(t), nil, nil)}
	h := mw.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusUnauthorized, serveWithPrincipal(h, Anonymous(), http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusOK, serveWithPrincipal(h, Principal{ID: "2", Role: RoleUser}, http.MethodGet, "/").Code)
}

func TestPrincipalFromContextDefaultsToAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	p := PrincipalFromContext(req.Context())
	assert.True(t, p.IsAnonymous())
	assert.Empty(t, p.ID)
}

func TestPermissionsHandlerListsCallerRules(t *testing.T) {
	reg := newDefaultRegistry(t)
	mw := Middleware{Enforcer: NewEnforcer(reg, nil, nil)}
	r := chi.NewRouter()
	r.Route("/permissions", NewPermissionsHandler(reg, mw).MountRoutes)

	rr := serveWithPrincipal(r, Principal{ID: "2", Role: RoleUser}, http.MethodGet, "/permissions/")
	require.Equal(t, http.StatusOK, rr.Code)

	var body permissionsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, RoleUser, body.Role)
	assert.Equal(t, reg.RulesFor(RoleUser), body.Rules)

	anon := serveWithPrincipal(r, Anonymous(), http.MethodGet, "/permissions/")
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}
