package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the state of a student's identity verification.
type VerificationStatus string

const (
	StatusNotSubmitted VerificationStatus = "not_submitted"
	StatusPending      VerificationStatus = "pending"
	StatusApproved     VerificationStatus = "approved"
	StatusRejected     VerificationStatus = "rejected"
)

// verificationTransitions lists the allowed next statuses for each status.
// A pending record may be resubmitted with a replacement document.
var verificationTransitions = map[VerificationStatus][]VerificationStatus{
	StatusNotSubmitted: {StatusPending},
	StatusPending:      {StatusPending, StatusApproved, StatusRejected},
	StatusRejected:     {StatusPending},
	StatusApproved:     {},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to VerificationStatus) bool {
	for _, allowed := range verificationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ParseDecision accepts only the two administrator decisions.
func ParseDecision(s string) (VerificationStatus, error) {
	switch VerificationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", Invalid("decision", "Decision must be %q or %q", StatusApproved, StatusRejected)
}

// VerificationRecord is the one-per-user verification state.
// IsVerifiedStudent is a stored projection of Status and is only written by transition.
type VerificationRecord struct {
	UserID            uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Status            VerificationStatus `gorm:"column:status;type:varchar(20);not null;default:'not_submitted';index" json:"verification_status"`
	DocumentRef       *string            `gorm:"column:document_ref" json:"document_ref,omitempty"`
	IsVerifiedStudent bool               `gorm:"column:is_verified_student;not null;default:false" json:"is_verified_student"`
	SubmittedAt       *time.Time         `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt        *time.Time         `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy        *uuid.UUID         `gorm:"column:reviewed_by;type:uuid" json:"reviewed_by,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

func (VerificationRecord) TableName() string {
	return "verification_records"
}

// NewVerificationRecord returns the signup state for userID.
func NewVerificationRecord(userID uuid.UUID) VerificationRecord {
	return VerificationRecord{UserID: userID, Status: StatusNotSubmitted}
}

func (r *VerificationRecord) transition(to VerificationStatus) error {
	if !CanTransition(r.Status, to) {
		return &TransitionError{From: r.Status, To: to}
	}
	r.Status = to
	r.IsVerifiedStudent = to == StatusApproved
	return nil
}

// Submit attaches a document and moves the record to pending.
func (r *VerificationRecord) Submit(documentRef string, now time.Time) error {
	if strings.TrimSpace(documentRef) == "" {
		return Invalid("verification_document", "A verification document is required")
	}
	if err := r.transition(StatusPending); err != nil {
		return err
	}
	r.DocumentRef = &documentRef
	r.SubmittedAt = &now
	r.ReviewedAt = nil
	r.ReviewedBy = nil
	return nil
}

// Decide applies an administrator decision to a pending record.
func (r *VerificationRecord) Decide(decision VerificationStatus, reviewer uuid.UUID, now time.Time) error {
	if decision != StatusApproved && decision != StatusRejected {
		return Invalid("decision", "Decision must be %q or %q", StatusApproved, StatusRejected)
	}
	if err := r.transition(decision); err != nil {
		return err
	}
	r.ReviewedAt = &now
	r.ReviewedBy = &reviewer
	return nil
}
