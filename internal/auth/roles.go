package auth

// Built-in role names seeded into every deployment.
const (
	RoleAdmin          = "Admin"
	RolePatient        = "Role1"
	RoleMedicalOfficer = "Role2"
)

// BuiltinRoles is the seeded role catalogue in creation order.
var BuiltinRoles = []string{
	RoleAdmin, "Role1", "Role2", "Role3", "Role4", "Role5", "Role6", "Role7", "Role8", "Role9",
}
