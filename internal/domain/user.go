package domain

import (
	"strings"
	"time"

	"roomlink-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered student or administrator.
type User struct {
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email        string             `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName     string             `gorm:"column:full_name;not null" json:"full_name"`
	PhoneNumber  string             `gorm:"column:phone_number;not null" json:"phone_number"`
	Department   *string            `gorm:"column:department" json:"department"`
	MatricNumber *string            `gorm:"column:matric_number;uniqueIndex" json:"matric_number"`
	PasswordHash string             `gorm:"column:password_hash;not null" json:"-"`
	Role         string             `gorm:"column:role;type:varchar(20);not null;default:'student'" json:"role"`
	Verification VerificationRecord `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"verification"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// IsVerifiedStudent is true iff the verification record is approved.
func (u *User) IsVerifiedStudent() bool {
	return u.Verification.Status == StatusApproved
}

func (u *User) IsAdmin() bool {
	return u.Role == constants.Admin
}

// TrustLabel is the owner-level badge shown next to a student's name.
func (u *User) TrustLabel() string {
	if u.IsVerifiedStudent() {
		return "Verified Student"
	}
	return "Unverified Student"
}

// WhatsAppLink builds a wa.me link from the normalized phone number.
func (u *User) WhatsAppLink() string {
	digits := strings.TrimPrefix(u.PhoneNumber, "+")
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}

// Actor returns the identity this user acts as.
func (u *User) Actor() Actor {
	return Actor{UserID: u.UserID, IsAdmin: u.IsAdmin()}
}
