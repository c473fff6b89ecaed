package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/arsenmarkotskyi/tt-event-management/internal/auth"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// BcryptCost is the work factor for password hashing.
const BcryptCost = 12

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "accounts").Logger(),
	}
}

type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user and issues a fresh auth token. Uniqueness of
// username and email is enforced by the store; violations surface as
// ErrUsernameTaken / ErrEmailTaken.
func (s *Service) Register(ctx context.Context, params RegisterParams) (User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(hash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
	})
	if err != nil {
		return User{}, "", err
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, token, nil
}

// Login verifies credentials and rotates the user's auth token. Unknown
// usernames and bad passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (User, string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, token, nil
}

// Logout destroys the presented token. A token that is already gone fails
// with ErrInvalidToken.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	deleted, err := s.repo.DeleteToken(ctx, auth.HashToken(rawToken))
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if !deleted {
		return ErrInvalidToken
	}
	return nil
}

// ResolveToken returns the user bound to a raw token.
func (s *Service) ResolveToken(ctx context.Context, rawToken string) (User, error) {
	user, err := s.repo.GetUserByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidToken
		}
		return User{}, fmt.Errorf("resolve token: %w", err)
	}
	return user, nil
}

func (s *Service) issueToken(ctx context.Context, userID string) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.ReplaceToken(ctx, userID, auth.HashToken(token)); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}
