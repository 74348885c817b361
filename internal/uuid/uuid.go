// Package uuid issues random identifiers for request correlation.
package uuid

import guuid "github.com/google/uuid"

// New returns a random (version 4) UUID string.
func New() string {
	return guuid.NewString()
}
