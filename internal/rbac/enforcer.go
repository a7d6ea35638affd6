package rbac

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

// DecisionObserver receives every access decision, typically for metrics.
type DecisionObserver interface {
	ObserveDecision(model string, op Operation, allowed bool)
}

// Enforcer answers whether a principal may run an operation on a model.
type Enforcer struct {
	registry *Registry
	logger   *slog.Logger
	observer DecisionObserver
}

// NewEnforcer constructs an Enforcer over the registry. logger and observer may be nil.
func NewEnforcer(registry *Registry, logger *slog.Logger, observer DecisionObserver) *Enforcer {
	return &Enforcer{registry: registry, logger: logger, observer: observer}
}

// Check evaluates the profile of the principal's role. Missing rules deny.
func (e *Enforcer) Check(principal Principal, model string, op Operation) Decision {
	if e == nil || e.registry == nil {
		return deny("no registry")
	}
	rule, ok := e.registry.lookup(principal.Role, model, op)
	if !ok {
		return deny("no rule")
	}
	if !rule.Allowed {
		return deny("rule denies")
	}
	return allow()
}

// Enforce runs Check and converts a denial into shared.ErrForbidden.
func (e *Enforcer) Enforce(ctx context.Context, principal Principal, model string, op Operation) error {
	decision := e.Check(principal, model, op)
	if e != nil && e.observer != nil {
		e.observer.ObserveDecision(model, op, decision.Allowed)
	}
	if decision.Allowed {
		return nil
	}
	if e != nil && e.logger != nil {
		e.logger.InfoContext(ctx, "access denied",
			slog.String("principal", principal.ID),
			slog.String("role", string(principal.Role)),
			slog.String("model", model),
			slog.String("operation", string(op)),
			slog.String("reason", decision.Reason),
		)
	}
	return shared.ErrForbidden
}
