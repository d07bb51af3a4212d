package database

import (
	"context"
	"errors"
	"filezone/internal/accounts"
	"filezone/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (q *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, fullname, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.db.Exec(ctx, query, user.ID, user.Email, user.Fullname, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return accounts.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT 
			id, 
			email, 
			fullname, 
			password_hash, 
			created_at
		FROM users
		WHERE email = $1
	`
	var user models.User

	err := q.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Fullname,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

var _ accounts.UserRepository = (*Store)(nil)
