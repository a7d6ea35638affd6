package rbac

// Model names of the records guarded by the built-in profiles.
const (
	ModelUser     = "User"
	ModelEmployee = "Employee"
	ModelAuditLog = "AuditLog"
)

// BuiltinModels lists the models the data layer registers.
func BuiltinModels() []string {
	return []string{ModelUser, ModelEmployee, ModelAuditLog}
}

// DefaultProfiles returns the built-in ADMIN and USER rule sets.
// Only ADMIN may read the audit trail; nobody may write it through the API.
func DefaultProfiles() map[Role][]Rule {
	var admin []Rule
	admin = append(admin, Grant(ModelUser, Access{Create: true, Read: true, Update: true, Delete: true})...)
	admin = append(admin, Grant(ModelEmployee, Access{Create: true, Read: true, Update: true, Delete: true})...)
	admin = append(admin, Grant(ModelAuditLog, Access{Read: true})...)

	var user []Rule
	user = append(user, Grant(ModelUser, Access{Read: true})...)
	user = append(user, Grant(ModelEmployee, Access{Create: true, Read: true})...)

	return map[Role][]Rule{
		RoleAdmin: admin,
		RoleUser:  user,
	}
}
