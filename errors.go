package pixelbot

import "errors"

var (
	// ErrEmptyPalette means no usable palette colors were loaded.
	ErrEmptyPalette = errors.New("palette has no valid colors")

	// ErrDecode wraps failures to parse template image bytes.
	ErrDecode = errors.New("cannot decode image")

	// ErrSizeMismatch means the decoded image does not cover the
	// template's size*size cells.
	ErrSizeMismatch = errors.New("image size does not match template")

	// ErrInvalidTemplate means the template metadata is out of range.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrUnauthorized is returned by API clients when the credential was
	// rejected. It triggers a single credential refresh.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthFailed is fatal for an account's cycle: the credential was
	// rejected again after a refresh, or no fresh credential exists.
	ErrAuthFailed = errors.New("authorization failed after refresh")
)
