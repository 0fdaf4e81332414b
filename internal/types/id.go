package types

import "github.com/google/uuid"

// ID is an opaque identifier (booking ids are UUIDs, user ids come from the identity provider).
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}
