package response

import (
	"errors"

	"roomlink-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors (status "error", error.message).
// Use this for auth middleware so all errors are consistent.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// DomainError maps the service error taxonomy to the standard error format.
// Validation failures carry field-level details; unexpected errors are logged and hidden.
func DomainError(c *fiber.Ctx, err error) error {
	var fe *domain.FieldError
	var te *domain.TransitionError
	switch {
	case errors.As(err, &fe):
		return Error(c, fe.Message, fiber.StatusBadRequest, map[string]interface{}{fe.Field: fe.Message})
	case errors.As(err, &te):
		return Error(c, te.Error(), fiber.StatusConflict, map[string]interface{}{"verification_status": te.Error()})
	case errors.Is(err, domain.ErrNotAuthorized):
		return Error(c, domain.ErrNotAuthorized.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, domain.ErrNotFound):
		return Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled service error")
	return Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
