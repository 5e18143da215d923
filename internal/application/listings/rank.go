package listings

import (
	"slices"

	"roomlink-backend/internal/domain"
)

// TierFunc resolves a listing's trust tier.
type TierFunc func(*domain.Listing) domain.TrustTier

// Rank orders listings by tier, then newest first. Equal keys keep their input order,
// so ranking a ranked slice is a no-op. The input is not modified.
func Rank(listings []domain.Listing, tier TierFunc) []domain.Listing {
	if tier == nil {
		tier = (*domain.Listing).TrustTier
	}
	ranked := slices.Clone(listings)
	slices.SortStableFunc(ranked, func(a, b domain.Listing) int {
		ta, tb := tier(&a), tier(&b)
		if ta != tb {
			return int(tb) - int(ta)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return ranked
}
