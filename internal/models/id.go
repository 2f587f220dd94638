package models

import "github.com/google/uuid"

// NewID returns a UUIDv7. Ids are monotonic in creation order, so lists
// sorted by created_at use id to break ties.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
