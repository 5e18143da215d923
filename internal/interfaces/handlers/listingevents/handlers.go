package listingevents

import (
	lesvc "roomlink-backend/internal/application/listingevents"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *lesvc.Service
}

// List GET /api/v1/admin/listing-events?listing_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	var listingID *uuid.UUID
	if raw := c.Query("listing_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, map[string]interface{}{"listing_id": "must be a UUID"})
		}
		listingID = &id
	}
	events, err := h.Service.ListEvents(c.UserContext(), listingID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", events, fiber.Map{"count": len(events)})
}
