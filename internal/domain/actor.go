package domain

import "github.com/google/uuid"

// Actor is the authenticated identity performing a request.
// It is supplied by the identity provider and passed explicitly to every mutation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// Anonymous reports whether no identity is attached.
func (a Actor) Anonymous() bool {
	return a.UserID == uuid.Nil
}
