package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"roomlink-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func setup(t *testing.T, db pinger) (*fiber.App, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	h := &Handlers{Rdb: rdb, DB: db, HealthAdminKey: "secret"}
	app := fiber.New()
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	app.Get("/reset", h.Reset)
	return app, mr
}

func getJSON(t *testing.T, app *fiber.App, path string, out interface{}) int {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

func TestJSON_ReportsDependencies(t *testing.T) {
	app, _ := setup(t, pinger{})
	var out map[string]interface{}
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/health/json", &out))
	assert.Equal(t, "roomlink-api", out["service"])
	deps := out["dependencies"].(map[string]interface{})
	assert.Equal(t, "connected", deps["database"].(map[string]interface{})["status"])

	app, _ = setup(t, pinger{err: errors.New("down")})
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/health/json", &out))
	deps = out["dependencies"].(map[string]interface{})
	assert.Equal(t, "error", deps["database"].(map[string]interface{})["status"])
}

func TestErrors_ReturnsRecordedEntries(t *testing.T) {
	app, mr := setup(t, pinger{})
	_, err := mr.Lpush(middleware.KeyErrorLog, `{"path":"/api/v1/listings","status":500}`)
	require.NoError(t, err)

	var out []map[string]interface{}
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/health/errors", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "/api/v1/listings", out[0]["path"])
}

func TestReset_RequiresKey(t *testing.T) {
	app, mr := setup(t, pinger{})
	require.NoError(t, mr.Set(middleware.KeyReqTotal, "12"))

	assert.Equal(t, fiber.StatusForbidden, getJSON(t, app, "/reset?key=wrong", nil))
	assert.True(t, mr.Exists(middleware.KeyReqTotal))

	assert.Equal(t, fiber.StatusOK, getJSON(t, app, "/reset?key=secret", nil))
	assert.False(t, mr.Exists(middleware.KeyReqTotal))
	assert.True(t, mr.Exists(middleware.KeyStartTime))
}
