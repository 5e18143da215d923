package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	listsvc "roomlink-backend/internal/application/listings"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/infrastructure/database"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type memStore struct {
	put     []string
	removed []string
}

func (m *memStore) Put(_ context.Context, bucket, fileName, _ string, body io.Reader) (string, error) {
	_, _ = io.ReadAll(body)
	ref := bucket + "/" + uuid.NewString() + "-" + fileName
	m.put = append(m.put, ref)
	return ref, nil
}

func (m *memStore) Remove(_ context.Context, refs []string) error {
	m.removed = append(m.removed, refs...)
	return nil
}

func setupListingsTest(t *testing.T) (*Handlers, *memStore, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	store := &memStore{}
	return &Handlers{Service: &listsvc.Service{DB: db}, Store: store, Bucket: "listing-media"}, store, db
}

func seedUser(t *testing.T, db *gorm.DB, status domain.VerificationStatus, role string) *domain.User {
	u := &domain.User{
		Email:        uuid.NewString() + "@unilag.edu.ng",
		FullName:     "Ada Obi",
		PhoneNumber:  "+2349012345678",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Omit("Verification").Create(u).Error)
	rec := domain.NewVerificationRecord(u.UserID)
	rec.Status = status
	rec.IsVerifiedStudent = status == domain.StatusApproved
	require.NoError(t, db.Create(&rec).Error)
	return u
}

// newApp mounts the handlers; the X-Test-User header selects the session user.
func newApp(h *Handlers, users ...*domain.User) *fiber.App {
	byID := map[string]*domain.User{}
	for _, u := range users {
		byID[u.UserID.String()] = u
	}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if u, ok := byID[c.Get("X-Test-User")]; ok {
			middleware.SetSessionUser(c, middleware.SessionUser{UserID: u.UserID.String(), FullName: u.FullName, Email: u.Email, Role: u.Role})
		}
		return c.Next()
	})
	app.Get("/listings", h.Search)
	app.Get("/listings/:id", h.Detail)
	app.Post("/listings", h.Create)
	app.Put("/listings/:id", h.Edit)
	app.Patch("/listings/:id/primary-media", h.SetPrimary)
	app.Delete("/listings/:id", h.Delete)
	app.Get("/me/listings", h.MyListings)
	return app
}

type upload struct {
	name string
	data []byte
}

func doForm(t *testing.T, app *fiber.App, method, path string, as *domain.User, fields map[string]string, files ...upload) (int, map[string]interface{}) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile("media", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if as != nil {
		req.Header.Set("X-Test-User", as.UserID.String())
	}
	return do(t, app, req)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, as *domain.User, body interface{}) (int, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-Test-User", as.UserID.String())
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func house(title, rent string) map[string]string {
	return map[string]string{"listing_type": "house", "title": title, "rent": rent, "location": "Akoka"}
}

func TestCreate_RequiresSession(t *testing.T) {
	h, store, _ := setupListingsTest(t)
	app := newApp(h)

	code, _ := doForm(t, app, "POST", "/listings", nil, house("Flat", "150000"), upload{"a.png", pngBytes})
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Empty(t, store.put)
}

func TestCreate_StoresMediaAndListing(t *testing.T) {
	h, store, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusApproved, constants.Student)
	app := newApp(h, owner)

	code, out := doForm(t, app, "POST", "/listings", owner, house("Self-contain near gate", "150000"),
		upload{"front.png", pngBytes}, upload{"room.png", pngBytes})
	require.Equal(t, fiber.StatusCreated, code, out)
	require.Len(t, store.put, 2)

	data := out["data"].(map[string]interface{})
	assert.Equal(t, "verified_owner_pending_review", data["trust_tier"])
	assert.Equal(t, "Listing Under Review", data["badge"])
	media := data["media"].([]interface{})
	require.Len(t, media, 2)
	assert.Equal(t, true, media[0].(map[string]interface{})["is_primary"])
	assert.Equal(t, "image/png", media[0].(map[string]interface{})["content_type"])

	var n int64
	require.NoError(t, db.Model(&domain.MediaItem{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestCreate_RejectsDisallowedFileBeforeStoring(t *testing.T) {
	h, store, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner)

	code, out := doForm(t, app, "POST", "/listings", owner, house("Flat", "150000"),
		upload{"photo.png", []byte("plain text pretending to be a picture")})
	assert.Equal(t, fiber.StatusBadRequest, code)
	errObj := out["error"].(map[string]interface{})
	assert.Contains(t, errObj["details"], "media")
	assert.Empty(t, store.put)
}

func TestCreate_ServiceFailureDiscardsUploads(t *testing.T) {
	h, store, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner)

	fields := map[string]string{"listing_type": "house", "title": "Flat", "rent": "1000"}
	code, _ := doForm(t, app, "POST", "/listings", owner, fields, upload{"a.png", pngBytes})
	assert.Equal(t, fiber.StatusBadRequest, code)
	require.Len(t, store.put, 1)
	assert.Equal(t, store.put, store.removed)

	var n int64
	require.NoError(t, db.Model(&domain.Listing{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreate_InvalidRent(t *testing.T) {
	h, _, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner)

	code, out := doForm(t, app, "POST", "/listings", owner, house("Flat", "cheap"))
	assert.Equal(t, fiber.StatusBadRequest, code)
	errObj := out["error"].(map[string]interface{})
	assert.Contains(t, errObj["details"], "rent")
}

func createListing(t *testing.T, app *fiber.App, owner *domain.User, title string, files ...upload) string {
	code, out := doForm(t, app, "POST", "/listings", owner, house(title, "120000"), files...)
	require.Equal(t, fiber.StatusCreated, code, out)
	return out["data"].(map[string]interface{})["listing_id"].(string)
}

func TestEdit_OnlyOwner(t *testing.T) {
	h, _, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	other := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	admin := seedUser(t, db, domain.StatusNotSubmitted, constants.Admin)
	app := newApp(h, owner, other, admin)
	id := createListing(t, app, owner, "Flat")

	code, _ := doForm(t, app, "PUT", "/listings/"+id, other, house("Stolen", "1"))
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = doForm(t, app, "PUT", "/listings/"+id, admin, house("Admin edit", "1"))
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = doForm(t, app, "PUT", "/listings/"+uuid.NewString(), owner, house("Ghost", "1"))
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out := doForm(t, app, "PUT", "/listings/"+id, owner, house("Renamed flat", "99000.456"), upload{"new.png", pngBytes})
	require.Equal(t, fiber.StatusOK, code, out)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "Renamed flat", data["title"])
	assert.Equal(t, 99000.46, data["rent"])
	assert.Len(t, data["media"], 1)
}

func TestEdit_UnauthorizedStoresNothing(t *testing.T) {
	h, store, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	intruder := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner, intruder)
	id := createListing(t, app, owner, "Flat")
	store.put, store.removed = nil, nil

	code, _ := doForm(t, app, "PUT", "/listings/"+id, intruder, house("Stolen", "1"), upload{"a.png", pngBytes})
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = doForm(t, app, "PUT", "/listings/"+uuid.NewString(), intruder, house("Ghost", "1"), upload{"b.png", pngBytes})
	assert.Equal(t, fiber.StatusForbidden, code)

	assert.Empty(t, store.put)
	assert.Empty(t, store.removed)
}

func TestSetPrimary(t *testing.T) {
	h, _, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner)
	id := createListing(t, app, owner, "Flat", upload{"a.png", pngBytes}, upload{"b.png", pngBytes})

	var media []domain.MediaItem
	require.NoError(t, db.Where("listing_id = ?", id).Order("position ASC").Find(&media).Error)
	require.Len(t, media, 2)

	code, _ := doJSON(t, app, "PATCH", "/listings/"+id+"/primary-media", owner, map[string]string{"media_id": media[1].MediaID.String()})
	require.Equal(t, fiber.StatusOK, code)

	var primary []domain.MediaItem
	require.NoError(t, db.Where("listing_id = ? AND is_primary = ?", id, true).Find(&primary).Error)
	require.Len(t, primary, 1)
	assert.Equal(t, media[1].MediaID, primary[0].MediaID)

	code, _ = doJSON(t, app, "PATCH", "/listings/"+id+"/primary-media", owner, map[string]string{"media_id": uuid.NewString()})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestDetailAndDelete(t *testing.T) {
	h, store, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	other := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, owner, other)
	id := createListing(t, app, owner, "Flat", upload{"a.png", pngBytes})

	code, out := doJSON(t, app, "GET", "/listings/"+id, nil, nil)
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["view_count"])
	owner1 := data["owner"].(map[string]interface{})
	assert.Equal(t, "Unverified Student", owner1["trust_label"])

	code, _ = doJSON(t, app, "DELETE", "/listings/"+id, other, nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = doJSON(t, app, "DELETE", "/listings/"+id, owner, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, store.put, store.removed)

	code, _ = doJSON(t, app, "GET", "/listings/"+id, nil, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = doJSON(t, app, "GET", "/listings/not-a-uuid", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestSearch(t *testing.T) {
	h, _, db := setupListingsTest(t)
	verified := seedUser(t, db, domain.StatusApproved, constants.Student)
	plain := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	app := newApp(h, verified, plain)
	createListing(t, app, plain, "Cheap flat")
	createListing(t, app, verified, "Trusted flat")

	code, out := doJSON(t, app, "GET", "/listings?type=house&max_budget=200000", nil, nil)
	require.Equal(t, fiber.StatusOK, code)
	data := out["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "Trusted flat", data[0].(map[string]interface{})["title"])

	code, out = doJSON(t, app, "GET", "/listings?verified_only=true", nil, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 0)

	require.NoError(t, db.Model(&domain.Listing{}).Where("title = ?", "Cheap flat").Update("is_verified_listing", true).Error)
	code, out = doJSON(t, app, "GET", "/listings?verified_only=true", nil, nil)
	require.Equal(t, fiber.StatusOK, code)
	data = out["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Verified Listing", data[0].(map[string]interface{})["badge"])

	code, _ = doJSON(t, app, "GET", "/listings?min_budget=abc", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = doJSON(t, app, "GET", "/listings?type=castle", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out = doJSON(t, app, "GET", "/me/listings", plain, nil)
	require.Equal(t, fiber.StatusOK, code)
	mine := out["data"].([]interface{})
	require.Len(t, mine, 1)
	assert.Equal(t, "Cheap flat", mine[0].(map[string]interface{})["title"])
}

func TestVerify_AdminOnlyAllOrNothing(t *testing.T) {
	h, _, db := setupListingsTest(t)
	owner := seedUser(t, db, domain.StatusNotSubmitted, constants.Student)
	admin := seedUser(t, db, domain.StatusNotSubmitted, constants.Admin)
	app := newApp(h, owner, admin)
	app.Post("/admin/listings/verification", h.Verify)
	id := createListing(t, app, owner, "Flat")

	code, _ := doJSON(t, app, "POST", "/admin/listings/verification", owner, map[string]interface{}{"listing_ids": []string{id}, "verified": true})
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = doJSON(t, app, "POST", "/admin/listings/verification", admin, map[string]interface{}{"listing_ids": []string{id, uuid.NewString()}, "verified": true})
	assert.Equal(t, fiber.StatusNotFound, code)
	var l domain.Listing
	require.NoError(t, db.First(&l, "listing_id = ?", id).Error)
	assert.False(t, l.IsVerifiedListing)

	code, _ = doJSON(t, app, "POST", "/admin/listings/verification", admin, map[string]interface{}{"listing_ids": []string{id}})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, out := doJSON(t, app, "POST", "/admin/listings/verification", admin, map[string]interface{}{"listing_ids": []string{id}, "verified": true})
	require.Equal(t, fiber.StatusOK, code, out)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["updated"])
	require.NoError(t, db.First(&l, "listing_id = ?", id).Error)
	assert.True(t, l.IsVerifiedListing)
}
