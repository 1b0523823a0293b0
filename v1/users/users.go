// Package users implements user management on top of a relational store.
//
// Email uniqueness is checked by the service before inserting. The store
// is also expected to carry a unique index on email and report a violation
// as errors.ErrEmailTaken, which closes the window where two concurrent
// creations with the same email both pass the check.
package users

import (
	"context"
)

// User is a registered user.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserCreate is the payload for creating a user.
type UserCreate struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// UserUpdate is the payload for updating a user. Empty fields keep their
// current value.
type UserUpdate struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

// Store persists users.
type Store interface {
	// Get returns the user with id. The boolean reports whether it exists.
	Get(ctx context.Context, id int64) (User, bool, error)
	// GetByEmail returns the user registered with email.
	GetByEmail(ctx context.Context, email string) (User, bool, error)
	// Create inserts u and returns it with its assigned ID.
	Create(ctx context.Context, u User) (User, error)
	// Update overwrites name and email of the user with u.ID.
	Update(ctx context.Context, u User) (User, error)
	// Delete removes the user with id. The boolean reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
