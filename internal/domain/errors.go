package domain

import "errors"

var (
	ErrDestinationResolution = errors.New("unable to resolve destination")
	ErrCaptchaRequired       = errors.New("captcha required")
	ErrPasswordRequired      = errors.New("password required")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrMissingMetadata       = errors.New("session metadata missing")
	ErrSyncTransport         = errors.New("sync transport failed")
	ErrCannotAuthorize       = errors.New("client cannot authorize")
	ErrNotRegistered         = errors.New("device not registered")
	ErrSessionNotFound       = errors.New("session not found")
	ErrSnapshotNotFound      = errors.New("snapshot not found")
	ErrSecretNotFound        = errors.New("secret not found")
)

// IsMetadataAuthError reports whether a metadata fetch failed on a recoverable
// credential challenge. The session stays alive and the caller retries.
func IsMetadataAuthError(err error) bool {
	return errors.Is(err, ErrCaptchaRequired) ||
		errors.Is(err, ErrPasswordRequired) ||
		errors.Is(err, ErrPermissionDenied)
}
