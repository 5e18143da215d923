package listings

import (
	"strings"

	"roomlink-backend/internal/domain"
)

// Query is the optional predicate set for listing search. Zero values impose no constraint.
type Query struct {
	Type         domain.ListingType
	Q            string
	MinRent      *float64
	MaxRent      *float64
	Gender       domain.GenderPreference
	Level        string
	VerifiedOnly bool
}

// Filter returns the listings matching every predicate in q, in input order.
// Roommate-only predicates (gender, level) do not constrain house listings.
// Owners must be preloaded for owner-name matching and verified_only.
func Filter(listings []domain.Listing, q Query) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	for _, l := range listings {
		if q.Type != "" && l.ListingType != q.Type {
			continue
		}
		if q.MinRent != nil && l.Rent < *q.MinRent {
			continue
		}
		if q.MaxRent != nil && l.Rent > *q.MaxRent {
			continue
		}
		if l.ListingType == domain.ListingRoommate {
			if q.Gender != "" && l.GenderPreference != q.Gender {
				continue
			}
			if q.Level != "" && !strings.EqualFold(l.LevelPreference, q.Level) {
				continue
			}
		}
		if q.VerifiedOnly && !l.IsVerifiedListing {
			continue
		}
		if needle != "" && !matchesText(&l, needle) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func matchesText(l *domain.Listing, needle string) bool {
	fields := []string{l.Title, l.Location, l.Description}
	if l.ListingType == domain.ListingRoommate {
		fields = append(fields, l.Interests...)
		if l.Owner != nil {
			fields = append(fields, l.Owner.FullName)
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
