package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
)

var _ accounts.Repository = (*UserRepository)(nil)

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, params accounts.CreateUserParams) (accounts.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (username, email, password_hash, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+userColumns,
		params.Username,
		params.Email,
		params.PasswordHash,
		params.FirstName,
		params.LastName,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return accounts.User{}, accounts.ErrUsernameTaken
		}
		if isUniqueViolation(err, "users_email_key") {
			return accounts.User{}, accounts.ErrEmailTaken
		}
		return accounts.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (accounts.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE username = $1`, username)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.User{}, accounts.ErrUserNotFound
		}
		return accounts.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByTokenHash(ctx context.Context, tokenHash string) (accounts.User, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.created_at, u.updated_at
  FROM users u
  JOIN auth_tokens t ON t.user_id = u.id
 WHERE t.token_hash = $1`, tokenHash)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.User{}, accounts.ErrUserNotFound
		}
		return accounts.User{}, fmt.Errorf("get user by token: %w", err)
	}
	return user, nil
}

func (r *UserRepository) ReplaceToken(ctx context.Context, userID, tokenHash string) error {
	// Single statement so the old token disappears atomically with the new
	// one appearing.
	_, err := r.queryer().Exec(ctx, `
WITH removed AS (
  DELETE FROM auth_tokens WHERE user_id = $1
)
INSERT INTO auth_tokens (token_hash, user_id)
VALUES ($2, $1)`, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteToken(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM auth_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (accounts.User, error) {
	var user accounts.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
