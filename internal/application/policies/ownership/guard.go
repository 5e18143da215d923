package ownership

import (
	"roomlink-backend/internal/domain"
)

// AuthorizeMutate allows edits and deletes by the listing's owner only.
// A nil listing is rejected with the same error so callers cannot tell whether it exists.
func AuthorizeMutate(actor domain.Actor, listing *domain.Listing) error {
	if listing == nil || actor.Anonymous() {
		return domain.ErrNotAuthorized
	}
	if actor.UserID != listing.OwnerID {
		return domain.ErrNotAuthorized
	}
	return nil
}

// AuthorizeDelete is AuthorizeMutate with an administrator override.
func AuthorizeDelete(actor domain.Actor, listing *domain.Listing) error {
	if listing != nil && actor.IsAdmin && !actor.Anonymous() {
		return nil
	}
	return AuthorizeMutate(actor, listing)
}

// AuthorizeVerificationOverride allows administrators to set listing and student verification.
func AuthorizeVerificationOverride(actor domain.Actor) error {
	if actor.Anonymous() || !actor.IsAdmin {
		return domain.ErrNotAuthorized
	}
	return nil
}
