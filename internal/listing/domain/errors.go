package domain

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means the request carries no usable identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means an identity is present but does not own the listing.
	ErrForbidden = errors.New("action forbidden")
	// ErrListingNotFound means the referenced listing does not exist.
	ErrListingNotFound = errors.New("listing not found")
	// ErrNotFoundOrForbidden hides whether a listing exists from non-owners.
	ErrNotFoundOrForbidden = errors.New("listing not found or not owned by user")
	ErrImageNotFound       = errors.New("image not found")
	ErrLinkNotFound        = errors.New("image is not attached to listing")
	// ErrConflict is a duplicate-key race that could not be resolved locally.
	ErrConflict = errors.New("conflicting concurrent write")

	ErrNoFiles              = errors.New("no files provided")
	ErrTooManyFiles         = errors.New("too many files")
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrUpstream marks a failed call to the semantic search service.
	ErrUpstream = errors.New("upstream service unavailable")

	// ErrDuplicateKey is returned by repositories when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
)
