package listings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"roomlink-backend/internal/application/gallery"
	"roomlink-backend/internal/application/listingevents"
	"roomlink-backend/internal/application/policies/ownership"
	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

// Input carries the editable listing fields. ListingType is ignored on edit.
type Input struct {
	ListingType      string
	Title            string
	Description      string
	Rent             float64
	Location         string
	GenderPreference string
	LevelPreference  string
	Interests        []string
}

// OwnerSummary is the public view of a listing's owner.
type OwnerSummary struct {
	UserID            uuid.UUID `json:"user_id"`
	FullName          string    `json:"full_name"`
	IsVerifiedStudent bool      `json:"is_verified_student"`
	TrustLabel        string    `json:"trust_label"`
	WhatsAppLink      string    `json:"whatsapp_link,omitempty"`
}

// ListingView is a listing with its resolved trust signals.
type ListingView struct {
	domain.Listing
	TrustTier string        `json:"trust_tier"`
	Badge     string        `json:"badge"`
	Owner     *OwnerSummary `json:"owner,omitempty"`
}

// NewListingView resolves the tier from the preloaded owner.
func NewListingView(l domain.Listing) ListingView {
	tier := l.TrustTier()
	v := ListingView{Listing: l, TrustTier: tier.String(), Badge: domain.Badge(tier)}
	if l.Owner != nil {
		v.Owner = &OwnerSummary{
			UserID:            l.Owner.UserID,
			FullName:          l.Owner.FullName,
			IsVerifiedStudent: l.Owner.IsVerifiedStudent(),
			TrustLabel:        l.Owner.TrustLabel(),
			WhatsAppLink:      l.Owner.WhatsAppLink(),
		}
	}
	return v
}

func views(listings []domain.Listing) []ListingView {
	out := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		out = append(out, NewListingView(l))
	}
	return out
}

// apply validates in and writes it onto l. l.ListingType must already be set.
func apply(l *domain.Listing, in Input) error {
	if math.IsNaN(in.Rent) || math.IsInf(in.Rent, 0) || in.Rent < 0 {
		return domain.Invalid("rent", "Rent must be a non-negative amount")
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return domain.Invalid("location", "Location is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		if l.ListingType == domain.ListingHouse {
			return domain.Invalid("title", "Title is required for house listings")
		}
		title = domain.DerivedRoommateTitle(location)
	}
	gender, err := domain.ParseGenderPreference(in.GenderPreference)
	if err != nil {
		return err
	}
	level := strings.TrimSpace(in.LevelPreference)
	if len(level) > 20 {
		return domain.Invalid("level_preference", "Level preference is too long")
	}
	interests, err := domain.NormalizeInterests(in.Interests)
	if err != nil {
		return err
	}

	l.Title = title
	l.Description = strings.TrimSpace(in.Description)
	l.Rent = math.Round(in.Rent*100) / 100
	l.Location = location
	if l.ListingType == domain.ListingRoommate {
		l.GenderPreference = gender
		l.LevelPreference = level
		l.Interests = interests
	} else {
		l.GenderPreference = ""
		l.LevelPreference = ""
		l.Interests = domain.Interests{}
	}
	return nil
}

func mediaRefs(items []domain.MediaItem) []string {
	refs := make([]string, 0, len(items))
	for _, m := range items {
		refs = append(refs, m.FileRef)
	}
	return refs
}

// load returns the listing with its media ordered by position, or nil when it does not exist.
func load(db *gorm.DB, listingID uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	err := db.Preload("Owner.Verification").Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("listing_id = ?", listingID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create validates the fields and the media set, then stores the listing, its media and a
// CREATED event in one transaction. files must already be stored (Ref set).
func (s *Service) Create(ctx context.Context, actor domain.Actor, in Input, files []gallery.File) (*domain.Listing, error) {
	if actor.Anonymous() {
		return nil, domain.ErrNotAuthorized
	}
	listingType, err := domain.ParseListingType(in.ListingType)
	if err != nil {
		return nil, err
	}
	listing := &domain.Listing{ListingID: uuid.New(), ListingType: listingType, OwnerID: actor.UserID}
	if err := apply(listing, in); err != nil {
		return nil, err
	}
	media, err := gallery.Attach(listing.ListingID, nil, files)
	if err != nil {
		return nil, err
	}
	listing.ThumbnailRef = gallery.Thumbnail(media)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Media", "Owner").Create(listing).Error; err != nil {
			return fmt.Errorf("Failed to create listing: %w", err)
		}
		if len(media) > 0 {
			if err := tx.Create(&media).Error; err != nil {
				return fmt.Errorf("Failed to attach media: %w", err)
			}
		}
		return listingevents.Record(tx, listing.ListingID, domain.EventCreated, actor, map[string]interface{}{
			"listing_type": listing.ListingType,
			"rent":         listing.Rent,
			"media_count":  len(media),
		})
	})
	if err != nil {
		return nil, err
	}
	listing.Media = media
	var owner domain.User
	if err := s.DB.WithContext(ctx).Preload("Verification").Where("user_id = ?", actor.UserID).First(&owner).Error; err == nil {
		listing.Owner = &owner
	}
	return listing, nil
}

// AuthorizeEdit reports whether actor may mutate the listing, without writing anything.
// Callers use it to reject a request before uploading files for it.
func (s *Service) AuthorizeEdit(ctx context.Context, actor domain.Actor, listingID uuid.UUID) error {
	listing, err := load(s.DB.WithContext(ctx), listingID)
	if err != nil {
		return err
	}
	return ownership.AuthorizeMutate(actor, listing)
}

// lockForMutation loads the listing inside tx with a row lock and runs the owner guard.
func lockForMutation(tx *gorm.DB, actor domain.Actor, listingID uuid.UUID) (*domain.Listing, error) {
	listing, err := load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), listingID)
	if err != nil {
		return nil, err
	}
	if err := ownership.AuthorizeMutate(actor, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Edit replaces the editable fields of an owned listing and appends any new media.
// Missing and foreign listings both yield ErrNotAuthorized.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, listingID uuid.UUID, in Input, files []gallery.File) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		listing, err = lockForMutation(tx, actor, listingID)
		if err != nil {
			return err
		}
		if err := apply(listing, in); err != nil {
			return err
		}
		added, err := gallery.Attach(listing.ListingID, listing.Media, files)
		if err != nil {
			return err
		}
		all := append(listing.Media, added...)
		changed := gallery.EnsurePrimary(all)
		listing.ThumbnailRef = gallery.Thumbnail(all)

		res := tx.Model(&domain.Listing{}).Where("listing_id = ?", listing.ListingID).Updates(map[string]interface{}{
			"title":             listing.Title,
			"description":       listing.Description,
			"rent":              listing.Rent,
			"location":          listing.Location,
			"gender_preference": listing.GenderPreference,
			"level_preference":  listing.LevelPreference,
			"interests":         listing.Interests,
			"thumbnail_ref":     listing.ThumbnailRef,
		})
		if res.Error != nil {
			return fmt.Errorf("Failed to update listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotAuthorized
		}
		if len(added) > 0 {
			if err := tx.Create(&added).Error; err != nil {
				return fmt.Errorf("Failed to attach media: %w", err)
			}
		}
		if err := syncPrimary(tx, all, changed); err != nil {
			return err
		}
		listing.Media = all
		if err := listingevents.Record(tx, listing.ListingID, domain.EventUpdated, actor, map[string]interface{}{
			"title": listing.Title,
			"rent":  listing.Rent,
		}); err != nil {
			return err
		}
		if len(added) == 0 {
			return nil
		}
		return listingevents.Record(tx, listing.ListingID, domain.EventMediaAdded, actor, map[string]interface{}{
			"file_refs": mediaRefs(added),
		})
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// syncPrimary persists the is_primary flag of the items whose ids are in changed.
func syncPrimary(tx *gorm.DB, items []domain.MediaItem, changed []uuid.UUID) error {
	for _, id := range changed {
		for _, m := range items {
			if m.MediaID != id {
				continue
			}
			if err := tx.Model(&domain.MediaItem{}).Where("media_id = ?", id).Update("is_primary", m.IsPrimary).Error; err != nil {
				return fmt.Errorf("Failed to update primary media: %w", err)
			}
		}
	}
	return nil
}

// SetPrimaryMedia moves the primary flag to mediaID and updates the thumbnail.
func (s *Service) SetPrimaryMedia(ctx context.Context, actor domain.Actor, listingID, mediaID uuid.UUID) (*domain.Listing, error) {
	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		listing, err = lockForMutation(tx, actor, listingID)
		if err != nil {
			return err
		}
		if err := gallery.SetPrimary(listing.Media, mediaID); err != nil {
			return err
		}
		listing.ThumbnailRef = gallery.Thumbnail(listing.Media)

		if err := tx.Model(&domain.MediaItem{}).Where("listing_id = ? AND media_id <> ?", listingID, mediaID).Update("is_primary", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.MediaItem{}).Where("media_id = ?", mediaID).Update("is_primary", true).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).Update("thumbnail_ref", listing.ThumbnailRef)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotAuthorized
		}
		return listingevents.Record(tx, listingID, domain.EventUpdated, actor, map[string]interface{}{
			"primary_media_id": mediaID,
		})
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Delete removes a listing and its media in one transaction. Owners and administrators may delete.
// It returns the file references that were attached so the caller can clean up storage.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, listingID uuid.UUID) ([]string, error) {
	listing, err := load(s.DB.WithContext(ctx), listingID)
	if err != nil {
		return nil, err
	}
	if err := ownership.AuthorizeDelete(actor, listing); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&domain.MediaItem{}).Error; err != nil {
			return fmt.Errorf("Failed to delete media: %w", err)
		}
		res := tx.Where("listing_id = ?", listingID).Delete(&domain.Listing{})
		if res.Error != nil {
			return fmt.Errorf("Failed to delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotAuthorized
		}
		return listingevents.Record(tx, listingID, domain.EventDeleted, actor, map[string]interface{}{
			"owner_id": listing.OwnerID,
			"by_admin": actor.UserID != listing.OwnerID,
		})
	})
	if err != nil {
		return nil, err
	}
	return mediaRefs(listing.Media), nil
}

// GetDetail returns the public view of a listing and counts the view.
func (s *Service) GetDetail(ctx context.Context, listingID uuid.UUID) (*ListingView, error) {
	db := s.DB.WithContext(ctx)
	var l domain.Listing
	err := db.Preload("Owner.Verification").Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("listing_id = ?", listingID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Listing{}).Where("listing_id = ?", listingID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
		return nil, fmt.Errorf("Failed to record view: %w", err)
	}
	l.ViewCount++
	v := NewListingView(l)
	return &v, nil
}

// Search filters and ranks all listings. The type discriminator is pushed down to the store.
func (s *Service) Search(ctx context.Context, q Query) ([]ListingView, error) {
	db := s.DB.WithContext(ctx).Preload("Owner.Verification")
	if q.Type != "" {
		db = db.Where("listing_type = ?", q.Type)
	}
	var all []domain.Listing
	if err := db.Order("created_at DESC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return views(Rank(Filter(all, q), nil)), nil
}

// MyListings returns the actor's own listings in display order.
func (s *Service) MyListings(ctx context.Context, actor domain.Actor) ([]ListingView, error) {
	if actor.Anonymous() {
		return nil, domain.ErrNotAuthorized
	}
	var mine []domain.Listing
	if err := s.DB.WithContext(ctx).Preload("Owner.Verification").
		Where("owner_id = ?", actor.UserID).Order("created_at DESC").Find(&mine).Error; err != nil {
		return nil, err
	}
	return views(Rank(mine, nil)), nil
}

// SetListingVerification sets is_verified_listing on every id, or on none if any id is unknown.
func (s *Service) SetListingVerification(ctx context.Context, actor domain.Actor, listingIDs []uuid.UUID, verified bool) (int, error) {
	if err := ownership.AuthorizeVerificationOverride(actor); err != nil {
		return 0, err
	}
	ids := uniqueIDs(listingIDs)
	if len(ids) == 0 {
		return 0, domain.Invalid("listing_ids", "At least one listing must be selected")
	}
	eventType := domain.EventUnverified
	if verified {
		eventType = domain.EventVerified
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Listing{}).Where("listing_id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(ids) {
			return domain.ErrNotFound
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id IN ?", ids).Update("is_verified_listing", verified).Error; err != nil {
			return fmt.Errorf("Failed to update listings: %w", err)
		}
		for _, id := range ids {
			if err := listingevents.Record(tx, id, eventType, actor, map[string]interface{}{"verified": verified}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
