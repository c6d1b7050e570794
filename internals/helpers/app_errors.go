// file: internals/helpers/app_errors.go
package helper

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

/* =========================================================
   Typed application errors

   ValidationError   — caller-supplied data violates a precondition
   InvalidStateError — operation not valid for the aggregate's state
   NotFoundError     — referenced entity does not exist
   GatewayError      — payment gateway unreachable / rejected / malformed
========================================================= */

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

func NewInvalidStateError(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func NewNotFoundError(entity string) *NotFoundError {
	return &NotFoundError{Entity: entity}
}

type GatewayError struct {
	Msg   string
	Cause error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *GatewayError) Unwrap() error { return e.Cause }

func NewGatewayError(msg string, cause error) *GatewayError {
	return &GatewayError{Msg: msg, Cause: cause}
}

/* =========================================================
   Fiber mapping
========================================================= */

// FromAppError translates a typed app error into the JSON error envelope.
// Unknown errors fall back to 500.
func FromAppError(c *fiber.Ctx, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Field != "" {
			return ErrorWithDetails(c, fiber.StatusBadRequest, "Validation failed", map[string]string{ve.Field: ve.Msg})
		}
		return Error(c, fiber.StatusBadRequest, ve.Msg)
	}

	var ise *InvalidStateError
	if errors.As(err, &ise) {
		return Error(c, fiber.StatusConflict, ise.Msg)
	}

	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return Error(c, fiber.StatusNotFound, nfe.Error())
	}

	var ge *GatewayError
	if errors.As(err, &ge) {
		return Error(c, fiber.StatusBadGateway, ge.Error())
	}

	if fe, ok := err.(*fiber.Error); ok {
		return Error(c, fe.Code, fe.Message)
	}

	return Error(c, fiber.StatusInternalServerError, err.Error())
}
