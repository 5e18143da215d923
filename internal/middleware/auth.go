package middleware

import (
	authsvc "roomlink-backend/internal/application/auth"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentActor returns the acting identity for the request; ok is false for anonymous requests.
func CurrentActor(c *fiber.Ctx) (domain.Actor, bool) {
	actor, err := authsvc.ActorFromSession(GetUser(c))
	if err != nil {
		return domain.Actor{}, false
	}
	return actor, true
}
