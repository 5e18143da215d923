package user

import (
	"errors"

	policies "roomlink-backend/internal/application/policies/user"
	usersvc "roomlink-backend/internal/application/user"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves profile and role endpoints.
type Handlers struct {
	Service *usersvc.Service
}

// Me GET /api/v1/users/me returns the profile with verification record and trust label.
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	profile, err := h.Service.ViewProfile(c.UserContext(), actor.UserID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Profile fetched", fiber.Map{"user": profile}, nil)
}

// UpdateMe PATCH /api/v1/users/me edits full_name, phone_number and department.
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var in usersvc.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	profile, err := h.Service.UpdateProfile(c.UserContext(), actor, in)
	if err != nil {
		return response.DomainError(c, err)
	}
	if in.FullName != nil {
		// keep the session copy in sync for /auth/me
		middleware.SetSessionUser(c, middleware.SessionUser{
			UserID:   profile.UserID.String(),
			FullName: profile.FullName,
			Email:    profile.Email,
			Role:     profile.Role,
		})
	}
	return response.Success(c, "Profile updated", fiber.Map{"user": profile}, nil)
}

// SetRoleRequest body.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// SetRole PATCH /api/v1/admin/users/:id/role
func (h *Handlers) SetRole(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid user id", fiber.StatusBadRequest, map[string]interface{}{"id": "must be a UUID"})
	}
	var req SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.SetRole(c.UserContext(), actor, targetID, req.Role)
	if err != nil {
		if errors.Is(err, policies.ErrUsersCannotModifyTheirOwnRole) || errors.Is(err, policies.ErrMustHaveAtLeastOneAdmin) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return response.DomainError(c, err)
	}
	return response.Success(c, "Role updated", fiber.Map{"user": u}, nil)
}
