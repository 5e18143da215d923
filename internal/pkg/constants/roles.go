package constants

const (
	Student = "student"
	Admin   = "admin"
)

// ValidRoles is the set of allowed values for users.role.
var ValidRoles = []string{Student, Admin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
