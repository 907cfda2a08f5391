package service

import "github.com/google/uuid"

// newID mints an opaque record id with a readable type prefix.
func newID(prefix string) string {
	return prefix + uuid.NewString()
}

// newTokenString mints an opaque single-use token.
func newTokenString() string {
	return uuid.NewString()
}
