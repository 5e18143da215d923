package ownership

import (
	"testing"

	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeMutate(t *testing.T) {
	owner := domain.Actor{UserID: uuid.New()}
	other := domain.Actor{UserID: uuid.New()}
	admin := domain.Actor{UserID: uuid.New(), IsAdmin: true}
	listing := &domain.Listing{ListingID: uuid.New(), OwnerID: owner.UserID}

	assert.NoError(t, AuthorizeMutate(owner, listing))
	assert.ErrorIs(t, AuthorizeMutate(other, listing), domain.ErrNotAuthorized)
	assert.ErrorIs(t, AuthorizeMutate(admin, listing), domain.ErrNotAuthorized)
	assert.ErrorIs(t, AuthorizeMutate(domain.Actor{}, listing), domain.ErrNotAuthorized)
}

func TestAuthorizeMutate_MissingListingIndistinguishable(t *testing.T) {
	actor := domain.Actor{UserID: uuid.New()}
	notOwned := AuthorizeMutate(actor, &domain.Listing{OwnerID: uuid.New()})
	missing := AuthorizeMutate(actor, nil)
	assert.Equal(t, notOwned, missing)
	assert.Equal(t, notOwned.Error(), missing.Error())
}

func TestAuthorizeDelete(t *testing.T) {
	owner := domain.Actor{UserID: uuid.New()}
	admin := domain.Actor{UserID: uuid.New(), IsAdmin: true}
	listing := &domain.Listing{OwnerID: owner.UserID}

	assert.NoError(t, AuthorizeDelete(owner, listing))
	assert.NoError(t, AuthorizeDelete(admin, listing))
	assert.ErrorIs(t, AuthorizeDelete(admin, nil), domain.ErrNotAuthorized)
	assert.ErrorIs(t, AuthorizeDelete(domain.Actor{UserID: uuid.New()}, listing), domain.ErrNotAuthorized)
}

func TestAuthorizeVerificationOverride(t *testing.T) {
	assert.NoError(t, AuthorizeVerificationOverride(domain.Actor{UserID: uuid.New(), IsAdmin: true}))
	assert.ErrorIs(t, AuthorizeVerificationOverride(domain.Actor{UserID: uuid.New()}), domain.ErrNotAuthorized)
	assert.ErrorIs(t, AuthorizeVerificationOverride(domain.Actor{IsAdmin: true}), domain.ErrNotAuthorized)
}
