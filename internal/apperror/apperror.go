// Package apperror defines the error taxonomy shared by services and
// controllers. Every error that reaches a client is an *Error with a Kind
// that decides its HTTP status.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindState
	KindNotFound
	KindUpstream
	KindStructural
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindStructural:
		return "structural"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code, msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg, Details: details}
}

// Forbidden never carries resource detail.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthorization, Code: "UNAUTHENTICATED", Message: msg}
}

func State(code, msg string) *Error {
	return &Error{Kind: KindState, Code: code, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: what + " not found"}
}

func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: "UPSTREAM_ERROR", Message: msg, Err: err}
}

func Structural(code, msg string, details ...string) *Error {
	return &Error{Kind: KindStructural, Code: code, Message: msg, Details: details}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: msg, Err: err}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// FromStore classifies an error coming back from the persistence layer.
func FromStore(what string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what)
	}
	return Upstream("storage request failed for "+what, err)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		if appErr.Code == "UNAUTHENTICATED" {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindState:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindStructural:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
