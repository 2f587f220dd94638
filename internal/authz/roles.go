package authz

const (
	RoleMember = 10
	RoleAdmin  = 50
)

func IsAdmin(roleID int) bool {
	return roleID == RoleAdmin
}

func Valid(roleID int) bool {
	return roleID == RoleMember || roleID == RoleAdmin
}
