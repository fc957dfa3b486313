package serverutils

import (
	"errors"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// AppError carries a status and a message that is safe to show to the client.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

func NotFound(message string) *AppError {
	return NewAppError(fiber.StatusNotFound, message)
}

func Conflict(message string) *AppError {
	return NewAppError(fiber.StatusConflict, message)
}

// ErrorHandler renders any error returned by a handler as the JSON error body.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var appErr *AppError
		var valErr *ValidationError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &valErr):
			body := ErrorResponse("Validation failed")
			body.Errors = valErr.Fields
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(body)
		case errors.As(err, &appErr):
			return ctx.Status(appErr.Status).JSON(ErrorResponse(appErr.Message))
		case errors.As(err, &fiberErr):
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		code := errcode.New()
		log.Error("HTTP", "Unhandled request error", map[string]interface{}{
			"error":      err.Error(),
			"error_code": code,
			"path":       ctx.Path(),
			"method":     ctx.Method(),
			"request_id": ctx.Locals("requestid"),
		})
		body := ErrorResponse("Something unexpected happened. Please try again.")
		body.ErrorCode = code
		return ctx.Status(fiber.StatusInternalServerError).JSON(body)
	}
}

// ErrorHandlerMiddleware resolves handler errors in place so later middleware sees the final status.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	handle := ErrorHandler(log)
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return handle(ctx, err)
		}
		return nil
	}
}
