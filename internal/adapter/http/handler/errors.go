package handler

import (
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	OK    bool      `json:"ok"`
	Error errorBody `json:"error"`
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{domain.ErrNoFiles, http.StatusBadRequest, "NO_FILES"},
	{domain.ErrTooManyFiles, http.StatusBadRequest, "TOO_MANY_FILES"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrListingNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNotFoundOrForbidden, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrImageNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrLinkNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicateKey, http.StatusConflict, "CONFLICT"},
	{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{domain.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
}

// classify maps err to an HTTP status and error code. Unknown errors are
// internal and their message is not exposed.
func classify(err error) (int, string, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code, err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
}
