package serverutils

import (
	"errors"

	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/service"
	"medconsult-be/pkg/rag/session"
	"medconsult-be/pkg/upload"
	"medconsult-be/pkg/vision"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string, details map[string]string) Response {
	return Response{Success: false, Message: message, Errors: details}
}

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

var validate = validator.New()

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		if fe.Param() != "" {
			fields[fe.Field()] += "=" + fe.Param()
		}
	}
	return &ValidationError{Fields: fields}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, upload.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidBackend),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, vision.ErrEmptyImage),
		errors.Is(err, vision.ErrNotImage):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns handler errors into JSON error responses.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			return ctx.Status(status).JSON(ErrorResponse(ve.Error(), ve.Fields))
		}
		return ctx.Status(status).JSON(ErrorResponse(err.Error(), nil))
	}
}
