package element

import (
	"errors"
	"fmt"
)

// IDLength is the fixed length of an element id.
const IDLength = 32

// RootID is the reserved id of the tree root.
const RootID = "00000000000000000000000000000000"

// ErrInvalidID is returned when a string does not have the element id format.
var ErrInvalidID = errors.New("invalid element id")

// IsValidID reports whether s is 32 lowercase hexadecimal characters.
func IsValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CheckID returns a wrapped ErrInvalidID when s is malformed.
func CheckID(s string) error {
	if !IsValidID(s) {
		return fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return nil
}

// IsTopLevel reports whether an element with this parent id resolves
// relative slugs against the site root.
func IsTopLevel(parentID string) bool {
	return parentID == "" || parentID == RootID
}
