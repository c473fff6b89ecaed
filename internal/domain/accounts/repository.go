package accounts

import (
	"context"
	"time"
)

// User is an account holder. PasswordHash never leaves the domain layer;
// response shaping strips it at the HTTP boundary.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByTokenHash(ctx context.Context, tokenHash string) (User, error)

	// ReplaceToken removes any existing tokens for the user and stores a
	// fresh one, keeping the token-per-user binding 1:1.
	ReplaceToken(ctx context.Context, userID, tokenHash string) error
	DeleteToken(ctx context.Context, tokenHash string) (bool, error)
}
