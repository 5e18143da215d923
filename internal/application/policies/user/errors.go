package policies

import "errors"

var (
	ErrUsersCannotModifyTheirOwnRole = errors.New("Users cannot modify their own role")
	ErrMustHaveAtLeastOneAdmin       = errors.New("There must be at least one admin")
)
