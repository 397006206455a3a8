package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind tags an error with the failure class callers branch on.
type Kind string

const (
	Validation   Kind = "validation"
	NotFound     Kind = "not_found"
	Unauthorized Kind = "unauthorized"
	Storage      Kind = "storage"
	Broadcast    Kind = "broadcast"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or "" for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCode maps an error to the HTTP status handlers should answer with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case Validation:
		return fiber.StatusBadRequest
	case NotFound:
		return fiber.StatusNotFound
	case Unauthorized:
		return fiber.StatusForbidden
	case Broadcast:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
