package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roomlink-backend/internal/application/emails"
	policies "roomlink-backend/internal/application/policies/user"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/pkg/constants"
	"roomlink-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service holds DB and Redis for user operations.
type Service struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Mailer emails.Sender
}

// SignupInput is the registration form.
type SignupInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	Department   string `json:"department"`
	MatricNumber string `json:"matric_number"`
}

// Profile is a user with derived trust fields.
type Profile struct {
	domain.User
	IsVerifiedStudent bool   `json:"is_verified_student"`
	TrustLabel        string `json:"trust_label"`
	WhatsAppLink      string `json:"whatsapp_link"`
}

func newProfile(u domain.User) *Profile {
	return &Profile{
		User:              u,
		IsVerifiedStudent: u.IsVerifiedStudent(),
		TrustLabel:        u.TrustLabel(),
		WhatsAppLink:      u.WhatsAppLink(),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validateFullName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.Invalid("full_name", "Full name is required")
	}
	if !validation.IsValidFullname(trimmed) {
		return "", domain.Invalid("full_name", "Full name contains invalid characters (only letters, spaces, hyphens, dots and apostrophes allowed)")
	}
	return validation.TitleCase(trimmed), nil
}

func validatePhone(raw string) (string, error) {
	phone, ok := validation.NormalizePhone(raw)
	if !ok {
		return "", domain.Invalid("phone_number", "Enter a valid Nigerian phone number, e.g. 09012345678")
	}
	return phone, nil
}

// Signup creates the identity and its not_submitted verification record together.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !validation.IsValidEmail(email) {
		return nil, domain.Invalid("email", "Invalid email format")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, domain.Invalid("password", "Password must be at least 8 characters with a letter, a number and a special character")
	}
	fullName, err := validateFullName(in.FullName)
	if err != nil {
		return nil, err
	}
	phone, err := validatePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	matric := optional(in.MatricNumber)
	if matric != nil && !validation.IsValidMatricNumber(*matric) {
		return nil, domain.Invalid("matric_number", "Matric number must be exactly %d digits", validation.MatricNumberDigits)
	}

	db := s.DB.WithContext(ctx)
	var existing int64
	if err := db.Model(&domain.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, domain.Invalid("email", "Email already registered")
	}
	if matric != nil {
		if err := db.Model(&domain.User{}).Where("matric_number = ?", *matric).Count(&existing).Error; err != nil {
			return nil, err
		}
		if existing > 0 {
			return nil, domain.Invalid("matric_number", "Matric number already registered")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		UserID:       uuid.New(),
		Email:        email,
		FullName:     fullName,
		PhoneNumber:  phone,
		Department:   optional(in.Department),
		MatricNumber: matric,
		PasswordHash: string(hash),
		Role:         constants.Student,
	}
	u.Verification = domain.NewVerificationRecord(u.UserID)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Verification").Create(u).Error; err != nil {
			return fmt.Errorf("Failed to create user: %w", err)
		}
		if err := tx.Create(&u.Verification).Error; err != nil {
			return fmt.Errorf("Failed to create verification record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendWelcome(ctx, u.Email, u.FullName); err != nil {
			log.Error().Err(err).Str("user_id", u.UserID.String()).Msg("signup: welcome email failed")
		}
	}
	return u, nil
}

// CreateAdmin registers an administrator account, or promotes the existing account with that email.
func (s *Service) CreateAdmin(ctx context.Context, in SignupInput) (*domain.User, error) {
	var existing domain.User
	err := s.DB.WithContext(ctx).Where("email = ?", strings.TrimSpace(strings.ToLower(in.Email))).First(&existing).Error
	if err == nil {
		if err := s.DB.WithContext(ctx).Model(&existing).Update("role", constants.Admin).Error; err != nil {
			return nil, err
		}
		existing.Role = constants.Admin
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u, err := s.Signup(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("role", constants.Admin).Error; err != nil {
		return nil, err
	}
	u.Role = constants.Admin
	return u, nil
}

// ViewProfile returns a user with the verification record preloaded.
func (s *Service) ViewProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Preload("Verification").Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if u.Verification.UserID == uuid.Nil {
		u.Verification = domain.NewVerificationRecord(u.UserID)
	}
	return newProfile(u), nil
}

// UpdateProfileInput lists editable profile fields; nil means unchanged.
type UpdateProfileInput struct {
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Department  *string `json:"department"`
}

// UpdateProfile edits the actor's own contact details.
func (s *Service) UpdateProfile(ctx context.Context, actor domain.Actor, in UpdateProfileInput) (*Profile, error) {
	if actor.Anonymous() {
		return nil, domain.ErrNotAuthorized
	}
	upd := map[string]interface{}{}
	if in.FullName != nil {
		name, err := validateFullName(*in.FullName)
		if err != nil {
			return nil, err
		}
		upd["full_name"] = name
	}
	if in.PhoneNumber != nil {
		phone, err := validatePhone(*in.PhoneNumber)
		if err != nil {
			return nil, err
		}
		upd["phone_number"] = phone
	}
	if in.Department != nil {
		upd["department"] = optional(*in.Department)
	}
	if len(upd) == 0 {
		return nil, domain.Invalid("profile", "No valid update fields provided")
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", actor.UserID).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return s.ViewProfile(ctx, actor.UserID)
}

// SetRole changes another user's role and signs them out everywhere.
func (s *Service) SetRole(ctx context.Context, actor domain.Actor, targetUserID uuid.UUID, role string) (*domain.User, error) {
	target, err := policies.ValidateRoleAssignment(s.DB.WithContext(ctx), policies.ValidateRoleAssignmentParams{
		Actor:      actor,
		TargetUser: targetUserID.String(),
		TargetRole: role,
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(target).Update("role", role).Error; err != nil {
		return nil, err
	}
	target.Role = role
	policies.DestroyUserSessions(ctx, s.Rdb, target.UserID.String())
	return target, nil
}
