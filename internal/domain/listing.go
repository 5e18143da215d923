package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingType string

const (
	ListingHouse    ListingType = "house"
	ListingRoommate ListingType = "roommate"
)

// ParseListingType validates the listing type discriminator.
func ParseListingType(s string) (ListingType, error) {
	switch ListingType(strings.ToLower(strings.TrimSpace(s))) {
	case ListingHouse:
		return ListingHouse, nil
	case ListingRoommate:
		return ListingRoommate, nil
	}
	return "", Invalid("type", "Listing type must be %q or %q", ListingHouse, ListingRoommate)
}

type GenderPreference string

const (
	GenderAny    GenderPreference = "any"
	GenderMale   GenderPreference = "male"
	GenderFemale GenderPreference = "female"
)

// ParseGenderPreference accepts an empty string as "no preference".
func ParseGenderPreference(s string) (GenderPreference, error) {
	switch GenderPreference(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case GenderAny:
		return GenderAny, nil
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	}
	return "", Invalid("gender_preference", "Gender preference must be any, male or female")
}

const (
	MaxInterests      = 10
	MaxInterestLength = 30
)

// Interests is an ordered set of short tags. It is stored as a JSON array column
// and marshals to JSON as an array.
type Interests []string

// NormalizeInterests trims tags, drops blanks and case-insensitive duplicates, keeping first-seen order.
func NormalizeInterests(raw []string) (Interests, error) {
	out := make(Interests, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		if len([]rune(tag)) > MaxInterestLength {
			return nil, Invalid("interests", "Each interest must be at most %d characters", MaxInterestLength)
		}
		seen[key] = true
		out = append(out, tag)
	}
	if len(out) > MaxInterests {
		return nil, Invalid("interests", "At most %d interests are allowed", MaxInterests)
	}
	return out, nil
}

// Scan implements sql.Scanner for reading from DB (json column).
func (in *Interests) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*in = Interests{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for Interests")
	}
	if len(b) == 0 {
		*in = Interests{}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return err
	}
	*in = tags
	return nil
}

// Value implements driver.Valuer for writing to DB.
func (in Interests) Value() (driver.Value, error) {
	if len(in) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(in))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Listing is a house or roommate post. CreatedAt is written once on insert.
type Listing struct {
	ListingID         uuid.UUID        `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ListingType       ListingType      `gorm:"column:listing_type;type:varchar(20);not null;index" json:"listing_type"`
	Title             string           `gorm:"column:title;not null" json:"title"`
	Description       string           `gorm:"column:description;type:text" json:"description"`
	Rent              float64          `gorm:"column:rent;type:decimal(12,2);not null" json:"rent"`
	Location          string           `gorm:"column:location;not null" json:"location"`
	OwnerID           uuid.UUID        `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Owner             *User            `gorm:"foreignKey:OwnerID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
	IsVerifiedListing bool             `gorm:"column:is_verified_listing;not null;default:false" json:"is_verified_listing"`
	ThumbnailRef      string           `gorm:"column:thumbnail_ref" json:"thumbnail_ref"`
	ViewCount         int64            `gorm:"column:view_count;not null;default:0" json:"view_count"`
	GenderPreference  GenderPreference `gorm:"column:gender_preference;type:varchar(10)" json:"gender_preference,omitempty"`
	LevelPreference   string           `gorm:"column:level_preference;type:varchar(20)" json:"level_preference,omitempty"`
	Interests         Interests        `gorm:"column:interests;type:json" json:"interests"`
	Media             []MediaItem      `gorm:"foreignKey:ListingID;references:ListingID;constraint:OnDelete:CASCADE" json:"media"`
	CreatedAt         time.Time        `gorm:"column:created_at;<-:create" json:"createdAt"`
	UpdatedAt         time.Time        `gorm:"column:updated_at" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// OwnerVerification returns the owner's record, or a not_submitted record when the owner is not loaded.
func (l *Listing) OwnerVerification() VerificationRecord {
	if l.Owner == nil {
		return NewVerificationRecord(l.OwnerID)
	}
	return l.Owner.Verification
}

// DerivedRoommateTitle is used when a roommate listing is posted without a title.
func DerivedRoommateTitle(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return "Roommate wanted"
	}
	return "Roommate wanted in " + location
}
