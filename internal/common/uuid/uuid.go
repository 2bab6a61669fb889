// Package uuid generates and parses peer guids. It wraps github.com/google/uuid and
// works on the raw 16-byte form the peer table stores.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// NewGuid returns the bytes of a fresh random (version 4) UUID.
func NewGuid() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(id))
	copy(b, id[:])
	return b, nil
}

// FromBytes converts a stored guid back to a UUID. It fails unless b is exactly 16 bytes.
func FromBytes(b []byte) (uuid.UUID, error) {
	return uuid.FromBytes(b)
}

// ParseGuid parses the textual form of a guid and returns its 16 raw bytes.
func ParseGuid(s string) ([]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid guid %q: %w", s, err)
	}
	return id[:], nil
}

// GuidString renders raw guid bytes in canonical form. Byte slices of the wrong
// length are rendered as hex so they still show up in logs.
func GuidString(b []byte) string {
	id, err := FromBytes(b)
	if err != nil {
		return fmt.Sprintf("%x", b)
	}
	return id.String()
}
