package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/labelforge-backend/internal/types"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps the domain error taxonomy onto transport envelopes.
// Anything unrecognized is an internal error.
func FromDomain(err error) *Error {
	var (
		validation *types.ValidationError
		notFound   *types.NotFoundError
		duplicate  *types.DuplicateNameError
		concurrent *types.ConcurrentUpdateError
		blob       *types.BlobStoreError
	)
	switch {
	case errors.As(err, &validation):
		return New(http.StatusBadRequest, "validation_failed", err)
	case errors.As(err, &notFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.As(err, &duplicate):
		return New(http.StatusConflict, "duplicate_name", err)
	case errors.As(err, &concurrent):
		return New(http.StatusConflict, "concurrent_update", err)
	case errors.As(err, &blob):
		return New(http.StatusBadGateway, "blob_store_error", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
