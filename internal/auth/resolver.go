package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
)

// Verifier checks a bearer token and returns its principal.
type Verifier interface {
	Verify(raw string) (rbac.Principal, error)
}

// Resolver turns the Authorization header of a request into a Principal.
// Missing or invalid credentials resolve to the fallback principal.
type Resolver struct {
	verifier Verifier
	fallback rbac.Principal
	logger   *slog.Logger
}

// NewResolver constructs a Resolver. fallback is usually rbac.Anonymous().
func NewResolver(verifier Verifier, fallback rbac.Principal, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{verifier: verifier, fallback: fallback, logger: logger}
}

// Resolve never fails: untrusted input that does not verify yields the fallback.
func (r *Resolver) Resolve(header string) rbac.Principal {
	header = strings.TrimSpace(header)
	if header == "" {
		return r.fallback
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		r.logger.Warn("unsupported authorization scheme")
		return r.fallback
	}
	principal, err := r.verifier.Verify(strings.TrimSpace(raw))
	if err != nil {
		r.logger.Warn("bearer token rejected", slog.Any("error", err))
		return r.fallback
	}
	return principal
}

// Middleware resolves the principal once per request and stores it in context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		principal := r.Resolve(req.Header.Get("Authorization"))
		next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), principal)))
	})
}
