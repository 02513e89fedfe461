package models

import (
	"strings"

	"github.com/google/uuid"
)

// ValidateAnimalID checks that id is a well-formed animal identifier (a UUID)
// and returns its canonical form.
func ValidateAnimalID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", Errorf(ErrInvalidAnimalID, "animal id %q is not a valid identifier", id)
	}
	return parsed.String(), nil
}

// CanonicalAnimalID returns the form animal ids are compared and stored in.
// UUIDs are lowercased; anything else is only trimmed.
func CanonicalAnimalID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}
