package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryUnknownRoleHasNoRules(t *testing.T) {
	reg := NewRegistry(BuiltinModels()...)
	require.NoError(t, reg.Register(RoleAdmin, Grant(ModelEmployee, Access{Read: true})))

	assert.Empty(t, reg.RulesFor(RoleUser))
	assert.Empty(t, reg.RulesFor(RoleAnonymous))
	assert.Empty(t, reg.RulesFor("AUDITOR"))
}

func TestRegistryRegisterReplacesProfile(t *testing.T) {
	reg := NewRegistry(BuiltinModels()...)
	require.NoError(t, reg.Register(RoleUser, Grant(ModelEmployee, Access{Create: true, Read: true})))
	require.NoError(t, reg.Register(RoleUser, []Rule{{Model: ModelUser, Operation: OpRead, Allowed: true}}))

	rules := reg.RulesFor(RoleUser)
	assert.Equal(t, []Rule{{Model: ModelUser, Operation: OpRead, Allowed: true}}, rules)
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry(ModelEmployee)
	rules := Grant(ModelEmployee, Access{Read: true})
	require.NoError(t, reg.Register(RoleUser, rules))
	require.NoError(t, reg.Register(RoleUser, rules))

	assert.Equal(t, rules, reg.RulesFor(RoleUser))
}

func TestRegistryDuplicateRuleLastWins(t *testing.T) {
	reg := NewRegistry(ModelEmployee)
	require.NoError(t, reg.Register(RoleUser, []Rule{
		{Model: ModelEmployee, Operation: OpDelete, Allowed: true},
		{Model: ModelEmployee, Operation: OpRead, Allowed: true},
		{Model: ModelEmployee, Operation: OpDelete, Allowed: false},
	}))

	assert.Equal(t, []Rule{
		{Model: ModelEmployee, Operation: OpDelete, Allowed: false},
		{Model: ModelEmployee, Operation: OpRead, Allowed: true},
	}, reg.RulesFor(RoleUser))
}

func TestRegistryRejectsUnknownModel(t *testing.T) {
	reg := NewRegistry(ModelEmployee)
	require.NoError(t, reg.Register(RoleUser, Grant(ModelEmployee, Access{Read: true})))

	err := reg.Register(RoleUser, Grant("Payroll", Access{Read: true}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.Len(t, reg.RulesFor(RoleUser), 4, "failed registration must leave the profile untouched")
}

func TestRegistryRejectsUnknownOperation(t *testing.T) {
	reg := NewRegistry(ModelEmployee)
	err := reg.Register(RoleUser, []Rule{{Model: ModelEmployee, Operation: "archive", Allowed: true}})
	assert.Error(t, err)
}

func TestRegistryRulesForReturnsCopy(t *testing.T) {
	reg := NewRegistry(ModelEmployee)
	require.NoError(t, reg.Register(RoleUser, Grant(ModelEmployee, Access{Read: true})))

	rules := reg.RulesFor(RoleUser)
	rules[0].Allowed = true

	assert.False(t, reg.RulesFor(RoleUser)[0].Allowed)
}

func TestRegistryProfilesAndModels(t *testing.T) {
	reg := NewRegistry(append(BuiltinModels(), " ")...)
	for role, rules := range DefaultProfiles() {
		require.NoError(t, reg.Register(role, rules))
	}
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, reg.Profiles())
	assert.Equal(t, []string{ModelAuditLog, ModelEmployee, ModelUser}, reg.Models())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = ParseRole(" USER ")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	_, err = ParseRole("ANONYMOUS")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleTokenableIsExact(t *testing.T) {
	assert.True(t, RoleUser.Tokenable())
	assert.True(t, RoleAdmin.Tokenable())
	for _, r := range []Role{RoleAnonymous, "", "admin", " ADMIN", "User"} {
		assert.False(t, r.Tokenable(), "role %q", r)
	}
}
