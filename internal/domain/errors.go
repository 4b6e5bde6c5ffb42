//go:generate go run github.com/abice/go-enum@v0.5.6 --marshal

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrMalformed       = errors.New("malformed")
)

// ENUM(unknown, bad_param, missing_param, not_found, forbidden, conflict, unauthenticated)
type ApiErrorType int

type ApiError struct {
	Type    ApiErrorType
	Details []string
}

func (res ApiError) Description() string {
	switch res.Type {
	case ApiErrorTypeBadParam:
		return "A validation error occurred"
	case ApiErrorTypeMissingParam:
		return "A required parameter is missing"
	case ApiErrorTypeNotFound:
		return "The requested resource does not exist"
	case ApiErrorTypeForbidden:
		return "Not allowed to access this resource"
	case ApiErrorTypeConflict:
		return "The request conflicts with an active trip"
	case ApiErrorTypeUnauthenticated:
		return "A valid bearer token is required"
	default:
		return "An unknown error occurred"
	}
}

func (res ApiError) MarshalJSON() ([]byte, error) {
	details := res.Details
	if details == nil {
		details = []string{}
	}
	return json.Marshal(struct {
		Type        ApiErrorType `json:"error"`
		Description string       `json:"error_description"`
		Details     []string     `json:"error_details"`
	}{
		Type:        res.Type,
		Description: res.Description(),
		Details:     details,
	})
}

func (res ApiError) Error() string {
	return fmt.Sprintf("%s: %s\n%s", res.Type, res.Description(), strings.Join(res.Details, "\n"))
}

// ApiErrorFrom classifies err by the sentinel it wraps. The message of err
// becomes the only detail.
func ApiErrorFrom(err error) (apiErr ApiError) {
	var existing ApiError
	if errors.As(err, &existing) {
		apiErr = existing
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		apiErr.Type = ApiErrorTypeNotFound
	case errors.Is(err, ErrForbidden):
		apiErr.Type = ApiErrorTypeForbidden
	case errors.Is(err, ErrConflict):
		apiErr.Type = ApiErrorTypeConflict
	case errors.Is(err, ErrUnauthenticated):
		apiErr.Type = ApiErrorTypeUnauthenticated
	case errors.Is(err, ErrMalformed):
		apiErr.Type = ApiErrorTypeBadParam
	default:
		apiErr.Type = ApiErrorTypeUnknown
		apiErr.Details = []string{"An unknown error has occurred"}
		return
	}
	apiErr.Details = []string{userMessage(err)}
	return
}

// userMessage strips the trailing sentinel text from a wrapped error.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrUnauthenticated, ErrMalformed} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}
