package policies

import (
	"errors"

	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/pkg/constants"

	"gorm.io/gorm"
)

type ValidateRoleAssignmentParams struct {
	Actor      domain.Actor
	TargetUser string
	TargetRole string
}

// ValidateRoleAssignment checks that actor may give TargetRole to the target user and returns the target.
func ValidateRoleAssignment(db *gorm.DB, params ValidateRoleAssignmentParams) (*domain.User, error) {
	if params.Actor.Anonymous() || !params.Actor.IsAdmin {
		return nil, domain.ErrNotAuthorized
	}
	if !constants.IsValidRole(params.TargetRole) {
		return nil, domain.Invalid("role", "Role must be %q or %q", constants.Student, constants.Admin)
	}
	var target domain.User
	if err := db.Where("user_id = ?", params.TargetUser).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if target.UserID == params.Actor.UserID {
		return nil, ErrUsersCannotModifyTheirOwnRole
	}
	if target.Role == constants.Admin && params.TargetRole != constants.Admin {
		var count int64
		if err := db.Model(&domain.User{}).Where("role = ?", constants.Admin).Count(&count).Error; err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, ErrMustHaveAtLeastOneAdmin
		}
	}
	return &target, nil
}
