package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mateforge/mateauth"
)

// SQLSTATE codes the repository classifies.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres account and subscription store.
type Repository struct {
	db DB
}

var _ mateauth.CredentialStore = (*Repository)(nil)

// NewRepository returns a Repository on db.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, username, password_hash, bio, is_verified, created_at`

func (r *Repository) findOne(ctx context.Context, op, where string, arg any) (*mateauth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	row := r.db.QueryRow(ctx, query, arg)

	var u mateauth.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Bio, &u.Verified, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mateauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("users: %s: %w", op, err)
	}
	return &u, nil
}

// FindByEmail looks an account up by its normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*mateauth.User, error) {
	return r.findOne(ctx, "find by email", "email = $1", email)
}

// FindByUsername looks an account up by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*mateauth.User, error) {
	return r.findOne(ctx, "find by username", "username = $1", username)
}

// FindByID looks an account up by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*mateauth.User, error) {
	return r.findOne(ctx, "find by id", "id = $1", id)
}

// Create inserts an unverified account with a fresh id.
func (r *Repository) Create(ctx context.Context, nu mateauth.NewUser) (*mateauth.User, error) {
	u := mateauth.User{
		ID:           uuid.New(),
		Email:        nu.Email,
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.Username, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, mateauth.ErrUsernameTaken
			}
			return nil, mateauth.ErrEmailTaken
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return &u, nil
}

// MarkVerified sets the verified flag. It is idempotent.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "mark verified", `UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
}

// UpdatePasswordHash replaces the stored digest.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.execOne(ctx, "update password hash", `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

// UpdateBio replaces the bio and returns the updated account.
func (r *Repository) UpdateBio(ctx context.Context, id uuid.UUID, bio string) (*mateauth.User, error) {
	query := `UPDATE users SET bio = $2 WHERE id = $1 RETURNING ` + userColumns
	var u mateauth.User
	err := r.db.QueryRow(ctx, query, id, bio).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Bio, &u.Verified, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mateauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("users: update bio: %w", err)
	}
	return &u, nil
}

// Delete removes the account. Subscriptions cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *Repository) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("users: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return mateauth.ErrUserNotFound
	}
	return nil
}

// Follow records that subscriber follows author.
func (r *Repository) Follow(ctx context.Context, subscriber, author uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscriptions (subscriber_id, author_id)
		VALUES ($1, $2)
	`, subscriber, author)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return mateauth.ErrAlreadyFollowing
		case codeForeignKeyViolation:
			return mateauth.ErrUserNotFound
		case codeCheckViolation:
			return mateauth.ValidationError("You cannot follow yourself")
		}
	}
	return fmt.Errorf("users: follow: %w", err)
}

// Unfollow removes the subscription of subscriber to author.
func (r *Repository) Unfollow(ctx context.Context, subscriber, author uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM subscriptions
		WHERE subscriber_id = $1 AND author_id = $2
	`, subscriber, author)
	if err != nil {
		return fmt.Errorf("users: unfollow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mateauth.ErrNotFollowing
	}
	return nil
}

// Followers lists the accounts following id, oldest subscription first.
func (r *Repository) Followers(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error) {
	return r.listProfiles(ctx, "followers", `
		SELECT u.id, u.username, u.bio
		FROM users u
		JOIN subscriptions s ON s.subscriber_id = u.id
		WHERE s.author_id = $1
		ORDER BY s.created_at, u.id
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
}

// Following lists the accounts id follows, oldest subscription first.
func (r *Repository) Following(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error) {
	return r.listProfiles(ctx, "following", `
		SELECT u.id, u.username, u.bio
		FROM users u
		JOIN subscriptions s ON s.author_id = u.id
		WHERE s.subscriber_id = $1
		ORDER BY s.created_at, u.id
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
}

func (r *Repository) listProfiles(ctx context.Context, op, query string, id uuid.UUID, limit, offset int) ([]Profile, error) {
	rows, err := r.db.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("users: %s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Profile, 0, limit)
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Bio); err != nil {
			return nil, fmt.Errorf("users: %s scan: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: %s: %w", op, err)
	}
	return out, nil
}

// Ping checks database reachability.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("users: ping: %w", err)
	}
	return nil
}
