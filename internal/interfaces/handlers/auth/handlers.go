package auth

import (
	"context"
	"errors"

	authsvc "roomlink-backend/internal/application/auth"
	usersvc "roomlink-backend/internal/application/user"
	"roomlink-backend/internal/domain"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Users      *usersvc.Service
	Rdb        *redis.Client
	Config     middleware.SessionConfig
	// CookieDomain is set on the cleared cookie at logout in production.
	CookieDomain string
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup POST /api/v1/auth/signup
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var in usersvc.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := h.Users.Signup(c.UserContext(), in)
	if err != nil {
		return response.DomainError(c, err)
	}
	if err := h.startSession(c, u); err != nil {
		log.Error().Err(err).Msg("auth/signup: failed to track session")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Account created", fiber.Map{"user": sessionPayload(u)}, nil)
}

// startSession rotates the session id, stores the user and tracks the id under user_sessions:<uid>.
func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) error {
	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   user.UserID.String(),
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	})
	if err := h.Rdb.SAdd(context.Background(), middleware.UserSessionsPrefix+user.UserID.String(), sessionID).Err(); err != nil {
		return err
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)
	return nil
}

func sessionPayload(user *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":             user.UserID.String(),
		"full_name":           user.FullName,
		"email":               user.Email,
		"role":                user.Role,
		"is_verified_student": user.IsVerifiedStudent(),
		"verification_status": verificationStatus(user),
	}
}

// Login POST /api/v1/auth/login authenticates, creates a session and tracks it under user_sessions:<uid>.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			log.Info().Err(err).Msg("auth/login: rejected")
			return response.Error(c, authsvc.ErrInvalidCredentials.Error(), fiber.StatusUnauthorized, nil)
		default:
			log.Error().Err(err).Msg("auth/login: lookup failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	if err := h.startSession(c, user); err != nil {
		log.Error().Err(err).Msg("auth/login: failed to track session")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Login successful", fiber.Map{"user": sessionPayload(user)}, nil)
}

func verificationStatus(u *domain.User) domain.VerificationStatus {
	if u.Verification.Status == "" {
		return domain.StatusNotSubmitted
	}
	return u.Verification.Status
}

// Me GET /api/v1/auth/me returns the current session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	user, err := authsvc.VerifyUser(sessionUser)
	if err != nil {
		log.Debug().Str("path", "/auth/me").
			Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
			Bool("session_user_nil", sessionUser == nil).
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout removes the session and clears the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := context.Background()

	if sessionID != "" {
		if u, err := authsvc.VerifyUser(middleware.GetUser(c)); err == nil {
			_ = h.Rdb.SRem(ctx, middleware.UserSessionsPrefix+u.UserID, sessionID).Err()
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	if h.Config.IsProduction && !h.Config.AllowCrossSiteDev && h.CookieDomain != "" {
		cookie.Domain = h.CookieDomain
	}
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
