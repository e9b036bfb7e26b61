package repositories

import "errors"

var (
	// ErrProductNotFound indicates the catalog has no matching active row.
	ErrProductNotFound = errors.New("product not found")
	// ErrUserNotFound indicates the account row is missing.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser indicates the username or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrTranscriptNotFound indicates the transcript record is missing.
	ErrTranscriptNotFound = errors.New("transcript record not found")
)
