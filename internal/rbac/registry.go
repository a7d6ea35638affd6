package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownModel is returned when a rule references a model the data layer does not register.
var ErrUnknownModel = errors.New("rbac: unknown model")

// Registry holds the profile of rules for each role. Profiles are registered
// at startup and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]struct{}
	profiles map[Role][]Rule
}

// NewRegistry builds a registry that accepts rules for the given models only.
func NewRegistry(models ...string) *Registry {
	known := make(map[string]struct{}, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m != "" {
			known[m] = struct{}{}
		}
	}
	return &Registry{models: known, profiles: make(map[Role][]Rule)}
}

// Register replaces the rule set of the named profile. Duplicate
// (model, operation) pairs keep their first position and take the last verdict.
func (r *Registry) Register(profile Role, rules []Rule) error {
	if strings.TrimSpace(string(profile)) == "" {
		return errors.New("rbac: profile name required")
	}
	normalized := make([]Rule, 0, len(rules))
	index := make(map[string]int, len(rules))
	for _, rule := range rules {
		if _, ok := r.models[rule.Model]; !ok {
			return fmt.Errorf("%w: %q in profile %s", ErrUnknownModel, rule.Model, profile)
		}
		if !rule.Operation.valid() {
			return fmt.Errorf("rbac: unknown operation %q in profile %s", rule.Operation, profile)
		}
		key := rule.Model + "\x00" + string(rule.Operation)
		if pos, ok := index[key]; ok {
			normalized[pos].Allowed = rule.Allowed
			continue
		}
		index[key] = len(normalized)
		normalized = append(normalized, rule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile] = normalized
	return nil
}

// RulesFor returns a copy of the rules registered for the role.
func (r *Registry) RulesFor(role Role) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules := r.profiles[role]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Profiles returns the registered profile names in sorted order.
func (r *Registry) Profiles() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Role, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Models returns the model names the registry accepts, sorted.
func (r *Registry) Models() []string {
	models := make([]string, 0, len(r.models))
	for m := range r.models {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

func (r *Registry) lookup(role Role, model string, op Operation) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.profiles[role] {
		if rule.Model == model && rule.Operation == op {
			return rule, true
		}
	}
	return Rule{}, false
}
