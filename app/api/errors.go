package api

import (
	"errors"
	"log/slog"

	"docai/types"

	"github.com/gofiber/fiber/v2"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(types.ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		apiError := NewError(fiberError.Code, fiberError.Message)
		return c.Status(apiError.Code).JSON(apiError)
	}

	apiError := NewError(fiber.StatusInternalServerError, err.Error())
	slog.Error("request failed", "code", apiError.Code, "error", apiError.Message)
	return c.Status(apiError.Code).JSON(apiError)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrMissingFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "multipart form must contain a 'file' field",
	}
}

func ErrNotFound(resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: resource + " not found",
	}
}
