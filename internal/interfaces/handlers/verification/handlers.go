package verification

import (
	verifysvc "roomlink-backend/internal/application/verification"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/interfaces/handlers/uploads"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxDocumentBytes bounds a single verification document.
const MaxDocumentBytes int64 = 10 * 1024 * 1024

// Handlers serves student document submission and administrator review.
type Handlers struct {
	Service *verifysvc.Service
	Store   uploads.Store
	Bucket  string
}

// SubmitDocument POST /api/v1/verification/document (multipart "document")
func (h *Handlers) SubmitDocument(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	parts, err := uploads.Collect(c, "document")
	if err != nil {
		return response.DomainError(c, domain.Invalid("document", "Could not read uploaded file"))
	}
	if len(parts) != 1 {
		return response.DomainError(c, domain.Invalid("document", "Upload exactly one document"))
	}
	doc := parts[0]
	if !uploads.AllowedDocument(doc.ContentType) {
		return response.DomainError(c, domain.Invalid("document", "Document must be a PDF, JPG or PNG file"))
	}
	if doc.Header.Size > MaxDocumentBytes {
		return response.DomainError(c, domain.Invalid("document", "Document must be at most 10 MB"))
	}

	stored, err := uploads.StoreAll(c.UserContext(), h.Store, h.Bucket, parts)
	if err != nil {
		log.Error().Err(err).Str("user_id", actor.UserID.String()).Msg("verification: document upload failed")
		return response.Error(c, "Failed to store document", fiber.StatusBadGateway, nil)
	}
	rec, err := h.Service.SubmitDocument(c.UserContext(), actor, stored[0].Ref)
	if err != nil {
		uploads.Discard(c.UserContext(), h.Store, uploads.Refs(stored))
		return response.DomainError(c, err)
	}
	return response.Success(c, "Verification document submitted", fiber.Map{"verification": rec}, nil)
}

// DecisionRequest body.
type DecisionRequest struct {
	UserIDs  []uuid.UUID `json:"user_ids"`
	Decision string      `json:"decision"`
}

// Decide POST /api/v1/admin/verification approves or rejects every listed student.
func (h *Handlers) Decide(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	records, err := h.Service.SetVerification(c.UserContext(), actor, req.UserIDs, req.Decision)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Verification updated", records, fiber.Map{"count": len(records)})
}
