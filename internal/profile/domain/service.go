package domain

import (
	"context"
	"errors"
)

type Service interface {
	// EnsureProfile returns the profile for the identity key, creating a
	// free-tier one on first sight. Profile creation is lazy so a user
	// record exists by the time any quota decision is made.
	EnsureProfile(ctx context.Context, identityKey, email string) (UserProfile, error)
	GetByIdentity(ctx context.Context, identityKey string) (UserProfile, error)
}

var (
	ErrInvalidIdentityKey = errors.New("invalid_identity_key")
	ErrNotFound           = errors.New("profile_not_found")
)
