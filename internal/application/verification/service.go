package verification

import (
	"context"
	"fmt"
	"time"

	"roomlink-backend/internal/application/emails"
	"roomlink-backend/internal/application/policies/ownership"
	"roomlink-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service persists verification lifecycle transitions.
// Every write is conditional on the status it was read in, so concurrent reviews cannot both apply.
type Service struct {
	DB     *gorm.DB
	Mailer emails.Sender
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Record returns the user's verification record, creating the signup state if it is missing.
func (s *Service) Record(ctx context.Context, userID uuid.UUID) (*domain.VerificationRecord, error) {
	rec := domain.NewVerificationRecord(userID)
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// save writes rec if the stored status still equals from.
func save(tx *gorm.DB, rec *domain.VerificationRecord, from domain.VerificationStatus) error {
	res := tx.Model(&domain.VerificationRecord{}).
		Where("user_id = ? AND status = ?", rec.UserID, from).
		Updates(map[string]interface{}{
			"status":              rec.Status,
			"is_verified_student": rec.IsVerifiedStudent,
			"document_ref":        rec.DocumentRef,
			"submitted_at":        rec.SubmittedAt,
			"reviewed_at":         rec.ReviewedAt,
			"reviewed_by":         rec.ReviewedBy,
		})
	if res.Error != nil {
		return fmt.Errorf("Failed to update verification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.TransitionError{From: from, To: rec.Status}
	}
	return nil
}

// SubmitDocument attaches a stored document reference and moves the actor's record to pending.
func (s *Service) SubmitDocument(ctx context.Context, actor domain.Actor, documentRef string) (*domain.VerificationRecord, error) {
	if actor.Anonymous() {
		return nil, domain.ErrNotAuthorized
	}
	rec, err := s.Record(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	from := rec.Status
	if err := rec.Submit(documentRef, s.now()); err != nil {
		return nil, err
	}
	if err := save(s.DB.WithContext(ctx), rec, from); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetVerification applies an administrator decision to every target, or to none if any target
// is unknown or not pending. Decision emails are sent after commit and failures only logged.
func (s *Service) SetVerification(ctx context.Context, actor domain.Actor, targets []uuid.UUID, decision string) ([]domain.VerificationRecord, error) {
	if err := ownership.AuthorizeVerificationOverride(actor); err != nil {
		return nil, err
	}
	status, err := domain.ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(targets)
	if len(ids) == 0 {
		return nil, domain.Invalid("user_ids", "At least one user must be selected")
	}

	var records []domain.VerificationRecord
	now := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN ?", ids).Find(&records).Error; err != nil {
			return err
		}
		if len(records) != len(ids) {
			return domain.ErrNotFound
		}
		for i := range records {
			from := records[i].Status
			if err := records[i].Decide(status, actor.UserID, now); err != nil {
				return err
			}
			if err := save(tx, &records[i], from); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, ids, status == domain.StatusApproved)
	return records, nil
}

func (s *Service) notify(ctx context.Context, ids []uuid.UUID, approved bool) {
	if s.Mailer == nil {
		return
	}
	var users []domain.User
	if err := s.DB.WithContext(ctx).Select("user_id", "email", "full_name").Where("user_id IN ?", ids).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("verification: failed to load users for notification")
		return
	}
	for _, u := range users {
		if err := s.Mailer.SendVerificationDecision(ctx, u.Email, u.FullName, approved); err != nil {
			log.Error().Err(err).Str("user_id", u.UserID.String()).Msg("verification: decision email failed")
		}
	}
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
