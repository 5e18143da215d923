package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	usersvc "roomlink-backend/internal/application/user"
	"roomlink-backend/internal/config"
	"roomlink-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type memStore struct {
	put []string
}

func (m *memStore) Put(_ context.Context, bucket, fileName, _ string, body io.Reader) (string, error) {
	_, _ = io.ReadAll(body)
	ref := bucket + "/" + uuid.NewString() + "-" + fileName
	m.put = append(m.put, ref)
	return ref, nil
}

func (m *memStore) Remove(context.Context, []string) error { return nil }

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *memStore) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &memStore{}
	cfg := &config.Config{Env: "test", MediaBucket: "listing-media", DocumentBucket: "verification-docs", MaxUploadMB: 10}
	return NewApp(cfg, Deps{DB: db, Rdb: rdb, Store: store}), db, store
}

type client struct {
	t      *testing.T
	app    *fiber.App
	cookie *http.Cookie
}

func (cl *client) do(req *http.Request) (int, map[string]interface{}) {
	if cl.cookie != nil {
		req.AddCookie(cl.cookie)
	}
	resp, err := cl.app.Test(req, -1)
	require.NoError(cl.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "roomlink.sid" && ck.Value != "" {
			cl.cookie = ck
		}
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (cl *client) json(method, path string, body interface{}) (int, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return cl.do(req)
}

func (cl *client) form(method, path string, fields map[string]string, file []byte) (int, map[string]interface{}) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(cl.t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile("media", "front.png")
		require.NoError(cl.t, err)
		_, err = fw.Write(file)
		require.NoError(cl.t, err)
	}
	require.NoError(cl.t, w.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return cl.do(req)
}

func data(out map[string]interface{}) map[string]interface{} {
	d, _ := out["data"].(map[string]interface{})
	return d
}

func TestHealthRoutes(t *testing.T) {
	app, _, _ := setupApp(t)
	cl := &client{t: t, app: app}

	code, out := cl.json(http.MethodGet, "/health/json", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "roomlink-api", out["service"])

	code, _ = cl.json(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSessionRequiredOnProtectedRoutes(t *testing.T) {
	app, _, _ := setupApp(t)
	cl := &client{t: t, app: app}

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPost, "/api/v1/listings"},
		{http.MethodPost, "/api/v1/verification/document"},
		{http.MethodPost, "/api/v1/admin/verification"},
		{http.MethodGet, "/api/v1/admin/listing-events"},
	} {
		code, _ := cl.json(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, code, tc.path)
	}

	code, out := cl.json(http.MethodGet, "/api/v1/listings", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", out["status"])
}

func TestStudentAndAdminFlow(t *testing.T) {
	app, db, store := setupApp(t)

	student := &client{t: t, app: app}
	code, out := student.json(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":         "ada@unilag.edu.ng",
		"password":      "s3cret!pass",
		"full_name":     "Ada Obi",
		"phone_number":  "09012345678",
		"matric_number": "190401001",
	})
	require.Equal(t, http.StatusCreated, code, out)
	require.NotNil(t, student.cookie)

	code, out = student.json(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, code, out)

	code, out = student.form(http.MethodPost, "/api/v1/listings", map[string]string{
		"listing_type": "house",
		"title":        "Two bedroom flat",
		"rent":         "250000",
		"location":     "Akoka",
	}, pngBytes)
	require.Equal(t, http.StatusCreated, code, out)
	assert.Len(t, store.put, 1)
	listingID, _ := data(out)["listing_id"].(string)
	require.NotEmpty(t, listingID)

	code, _ = student.json(http.MethodPost, "/api/v1/admin/listings/verification", map[string]interface{}{
		"listing_ids": []string{listingID}, "verified": true,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, out = student.json(http.MethodGet, "/api/v1/users/me/listings", nil)
	require.Equal(t, http.StatusOK, code, out)
	meta, _ := out["metadata"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["count"])

	users := &usersvc.Service{DB: db}
	_, err := users.CreateAdmin(context.Background(), usersvc.SignupInput{
		Email:       "admin@unilag.edu.ng",
		Password:    "adm1n!pass",
		FullName:    "Site Admin",
		PhoneNumber: "08012345678",
	})
	require.NoError(t, err)

	admin := &client{t: t, app: app}
	code, out = admin.json(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "admin@unilag.edu.ng", "password": "adm1n!pass"})
	require.Equal(t, http.StatusOK, code, out)

	code, out = admin.json(http.MethodPost, "/api/v1/admin/listings/verification", map[string]interface{}{
		"listing_ids": []string{listingID}, "verified": true,
	})
	require.Equal(t, http.StatusOK, code, out)

	code, out = student.json(http.MethodGet, "/api/v1/listings?verified_only=true", nil)
	require.Equal(t, http.StatusOK, code, out)
	meta, _ = out["metadata"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["count"])

	code, out = admin.json(http.MethodGet, "/api/v1/admin/listing-events?listing_id="+listingID, nil)
	require.Equal(t, http.StatusOK, code, out)

	code, _ = student.json(http.MethodDelete, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	student.cookie = nil
	code, _ = student.json(http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
