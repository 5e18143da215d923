package listings

import (
	"testing"
	"time"

	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func approvedOwner() *domain.User {
	u := &domain.User{UserID: uuid.New(), FullName: "Ada Obi"}
	u.Verification = domain.VerificationRecord{UserID: u.UserID, Status: domain.StatusApproved, IsVerifiedStudent: true}
	return u
}

func unverifiedOwner() *domain.User {
	u := &domain.User{UserID: uuid.New(), FullName: "Bayo Ade"}
	u.Verification = domain.NewVerificationRecord(u.UserID)
	return u
}

func titles(ls []domain.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Title)
	}
	return out
}

func TestRank_TierBeatsRecency(t *testing.T) {
	now := time.Now()
	ls := []domain.Listing{
		{Title: "new-unverified", CreatedAt: now, Owner: unverifiedOwner()},
		{Title: "old-verified-listing", CreatedAt: now.Add(-72 * time.Hour), IsVerifiedListing: true, Owner: unverifiedOwner()},
		{Title: "mid-owner-verified", CreatedAt: now.Add(-time.Hour), Owner: approvedOwner()},
	}
	ranked := Rank(ls, nil)
	assert.Equal(t, []string{"old-verified-listing", "mid-owner-verified", "new-unverified"}, titles(ranked))
	assert.Equal(t, "new-unverified", ls[0].Title, "input must not be reordered")
}

func TestRank_RecencyWithinTier(t *testing.T) {
	now := time.Now()
	ls := []domain.Listing{
		{Title: "older", CreatedAt: now.Add(-2 * time.Minute)},
		{Title: "newest", CreatedAt: now},
		{Title: "middle", CreatedAt: now.Add(-time.Minute)},
	}
	assert.Equal(t, []string{"newest", "middle", "older"}, titles(Rank(ls, nil)))
}

func TestRank_StableAndIdempotent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ls := []domain.Listing{
		{Title: "a", CreatedAt: at},
		{Title: "b", CreatedAt: at},
		{Title: "c", CreatedAt: at, IsVerifiedListing: true},
		{Title: "d", CreatedAt: at},
	}
	once := Rank(ls, nil)
	assert.Equal(t, []string{"c", "a", "b", "d"}, titles(once))
	assert.Equal(t, titles(once), titles(Rank(once, nil)))
}

func TestRank_CustomTierFunc(t *testing.T) {
	ls := []domain.Listing{{Title: "x", Rent: 1}, {Title: "y", Rent: 2}}
	byRent := func(l *domain.Listing) domain.TrustTier { return domain.TrustTier(l.Rent) }
	assert.Equal(t, []string{"y", "x"}, titles(Rank(ls, byRent)))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, nil))
}
