package constants

const (
	ViewData       = "view_data"
	PostListing    = "post_listing"
	ReviewStudents = "review_students"
	VerifyListings = "verify_listings"
	ViewAuditTrail = "view_audit_trail"
	ManageRoles    = "manage_roles"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:       {Student, Admin},
	PostListing:    {Student, Admin},
	ReviewStudents: {Admin},
	VerifyListings: {Admin},
	ViewAuditTrail: {Admin},
	ManageRoles:    {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
