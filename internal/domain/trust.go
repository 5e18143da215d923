package domain

// TrustTier orders listings for display. Higher is more trusted.
type TrustTier int

const (
	TierUnverified TrustTier = iota
	TierOwnerVerified
	TierVerifiedListing
)

func (t TrustTier) String() string {
	switch t {
	case TierVerifiedListing:
		return "verified_listing"
	case TierOwnerVerified:
		return "verified_owner_pending_review"
	default:
		return "unverified"
	}
}

// ResolveTier derives a listing's tier from its own flag and its owner's record.
// Listing verification and owner verification are independent inputs.
func ResolveTier(l *Listing, owner VerificationRecord) TrustTier {
	if l.IsVerifiedListing {
		return TierVerifiedListing
	}
	if owner.Status == StatusApproved {
		return TierOwnerVerified
	}
	return TierUnverified
}

// TrustTier resolves using the preloaded owner.
func (l *Listing) TrustTier() TrustTier {
	return ResolveTier(l, l.OwnerVerification())
}

// Badge is the display text for a tier.
func Badge(t TrustTier) string {
	switch t {
	case TierVerifiedListing:
		return "Verified Listing"
	case TierOwnerVerified:
		return "Listing Under Review"
	default:
		return "Unverified User – Under Review"
	}
}
