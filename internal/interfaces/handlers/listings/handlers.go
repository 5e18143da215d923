package listings

import (
	"strconv"
	"strings"

	"roomlink-backend/internal/application/gallery"
	listsvc "roomlink-backend/internal/application/listings"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/interfaces/handlers/uploads"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves the listing endpoints. Media are uploaded to Bucket in Store before the
// service sees them.
type Handlers struct {
	Service *listsvc.Service
	Store   uploads.Store
	Bucket  string
}

// Search GET /api/v1/listings
func (h *Handlers) Search(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	results, err := h.Service.Search(c.UserContext(), q)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", results, fiber.Map{"count": len(results)})
}

func parseQuery(c *fiber.Ctx) (listsvc.Query, error) {
	var q listsvc.Query
	if t := strings.TrimSpace(c.Query("type")); t != "" {
		lt, err := domain.ParseListingType(t)
		if err != nil {
			return q, err
		}
		q.Type = lt
	}
	q.Q = c.Query("q")
	var err error
	if q.MinRent, err = optionalFloat(c.Query("min_budget"), "min_budget"); err != nil {
		return q, err
	}
	if q.MaxRent, err = optionalFloat(c.Query("max_budget"), "max_budget"); err != nil {
		return q, err
	}
	if g := strings.TrimSpace(c.Query("gender")); g != "" {
		gp, err := domain.ParseGenderPreference(g)
		if err != nil {
			return q, err
		}
		q.Gender = gp
	}
	q.Level = strings.TrimSpace(c.Query("level"))
	q.VerifiedOnly = c.QueryBool("verified_only", false)
	return q, nil
}

func optionalFloat(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.Invalid(field, "%s must be a number", field)
	}
	return &v, nil
}

// Detail GET /api/v1/listings/:id
func (h *Handlers) Detail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Not found", fiber.StatusNotFound, nil)
	}
	view, err := h.Service.GetDetail(c.UserContext(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", view, nil)
}

func parseInput(c *fiber.Ctx) (listsvc.Input, error) {
	in := listsvc.Input{
		ListingType:      c.FormValue("listing_type"),
		Title:            c.FormValue("title"),
		Description:      c.FormValue("description"),
		Location:         c.FormValue("location"),
		GenderPreference: c.FormValue("gender_preference"),
		LevelPreference:  c.FormValue("level_preference"),
		Interests:        splitInterests(c.FormValue("interests")),
	}
	rent := strings.TrimSpace(c.FormValue("rent"))
	if rent == "" {
		return in, domain.Invalid("rent", "Rent is required")
	}
	v, err := strconv.ParseFloat(rent, 64)
	if err != nil {
		return in, domain.Invalid("rent", "Rent must be a number")
	}
	in.Rent = v
	return in, nil
}

// splitInterests reads the comma-separated "interests" form field into tags. The comma form exists
// only on the wire; the listing stores them as domain.Interests after NormalizeInterests.
func splitInterests(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// intake reads the media parts, checks them on their own and stores them.
func (h *Handlers) intake(c *fiber.Ctx) ([]gallery.File, error) {
	parts, err := uploads.Collect(c, "media")
	if err != nil {
		return nil, domain.Invalid("media", "Could not read uploaded files")
	}
	if len(parts) == 0 {
		return nil, nil
	}
	if err := gallery.Validate(nil, uploads.Files(parts)); err != nil {
		return nil, err
	}
	return uploads.StoreAll(c.UserContext(), h.Store, h.Bucket, parts)
}

// Create POST /api/v1/listings (multipart: fields plus "media" files). interests is a
// comma-separated field, e.g. "football,cooking".
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	in, err := parseInput(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	files, err := h.intake(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	listing, err := h.Service.Create(c.UserContext(), actor, in, files)
	if err != nil {
		uploads.Discard(c.UserContext(), h.Store, uploads.Refs(files))
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listsvc.NewListingView(*listing), nil)
}

// Edit PUT /api/v1/listings/:id (multipart, same fields as Create). The owner check runs before
// any file is stored; Edit repeats it under a row lock.
func (h *Handlers) Edit(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.DomainError(c, domain.ErrNotAuthorized)
	}
	in, err := parseInput(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	// nothing reaches the file store for a listing the actor cannot edit
	if err := h.Service.AuthorizeEdit(c.UserContext(), actor, id); err != nil {
		return response.DomainError(c, err)
	}
	files, err := h.intake(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	listing, err := h.Service.Edit(c.UserContext(), actor, id, in, files)
	if err != nil {
		uploads.Discard(c.UserContext(), h.Store, uploads.Refs(files))
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing updated successfully", listsvc.NewListingView(*listing), nil)
}

// SetPrimaryRequest body.
type SetPrimaryRequest struct {
	MediaID string `json:"media_id"`
}

// SetPrimary PATCH /api/v1/listings/:id/primary-media
func (h *Handlers) SetPrimary(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.DomainError(c, domain.ErrNotAuthorized)
	}
	var req SetPrimaryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		return response.DomainError(c, domain.Invalid("media_id", "media_id must be a UUID"))
	}
	listing, err := h.Service.SetPrimaryMedia(c.UserContext(), actor, id, mediaID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Primary media updated", listsvc.NewListingView(*listing), nil)
}

// Delete DELETE /api/v1/listings/:id removes the listing, then its stored files.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.DomainError(c, domain.ErrNotAuthorized)
	}
	refs, err := h.Service.Delete(c.UserContext(), actor, id)
	if err != nil {
		return response.DomainError(c, err)
	}
	uploads.Discard(c.UserContext(), h.Store, refs)
	return response.Success(c, "Listing deleted successfully", fiber.Map{"listing_id": id}, nil)
}

// MyListings GET /api/v1/users/me/listings
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	results, err := h.Service.MyListings(c.UserContext(), actor)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", results, fiber.Map{"count": len(results)})
}

// VerifyRequest body.
type VerifyRequest struct {
	ListingIDs []uuid.UUID `json:"listing_ids"`
	Verified   *bool       `json:"verified"`
}

// Verify POST /api/v1/admin/listings/verification sets is_verified_listing on every listed id.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Verified == nil {
		return response.DomainError(c, domain.Invalid("verified", "verified is required"))
	}
	n, err := h.Service.SetListingVerification(c.UserContext(), actor, req.ListingIDs, *req.Verified)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing verification updated", fiber.Map{"updated": n, "verified": *req.Verified}, nil)
}
