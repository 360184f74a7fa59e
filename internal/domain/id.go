package domain

import (
	"regexp"

	"github.com/google/uuid"
)

var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewID generates a UUIDv7 string for datasets. UUIDv7 sorts by creation
// time, which keeps stored snapshots roughly ordered.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ValidateID checks that a dataset ID is safe to use as a file name or
// object key.
func ValidateID(id string) error {
	if !validIDPattern.MatchString(id) {
		return ErrValidation("invalid dataset id %q", id)
	}
	return nil
}
