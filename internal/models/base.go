package models

import "github.com/google/uuid"

// ensureID fills an empty text primary key with a random UUID.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
