// Package apperr is the error taxonomy of the API. Handlers return these and
// the central fiber ErrorHandler renders them as JSON with a stable machine
// code next to the human-readable message.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: fiber.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Status: fiber.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Status: fiber.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Status: fiber.StatusNotFound, Message: msg}
}

// Conflict maps state-machine precondition violations. Reported as 400, the
// status the API has always used for them.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Status: fiber.StatusBadRequest, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Status: fiber.StatusInternalServerError, Message: msg, Err: err}
}

// Handler is the fiber ErrorHandler for the whole app.
func Handler(c *fiber.Ctx, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{
			"success": false,
			"code":    ae.Code,
			"message": ae.Message,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeInternal
		switch fe.Code {
		case fiber.StatusBadRequest:
			code = CodeValidation
		case fiber.StatusUnauthorized:
			code = CodeUnauthorized
		case fiber.StatusForbidden:
			code = CodeForbidden
		case fiber.StatusNotFound:
			code = CodeNotFound
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"code":    code,
			"message": fe.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"code":    CodeInternal,
		"message": "internal server error",
	})
}
