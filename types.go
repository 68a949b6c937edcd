package mateauth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the account record the engine reads and writes through [CredentialStore].
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	Bio          string
	Verified     bool
	CreatedAt    time.Time
}

// NewUser is the input to [CredentialStore.Create].
type NewUser struct {
	Email        string
	Username     string
	PasswordHash string
}

// CredentialStore is the account lookup the engine depends on.
//
// Lookups of a missing account must return an error matching [ErrUserNotFound].
// Create must return errors matching [ErrEmailTaken] or [ErrUsernameTaken] on
// uniqueness violations it detects itself.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, u NewUser) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// Hasher is the one-way password hash capability.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
	NeedsUpgrade(digest string) (bool, error)
}

// Notifier delivers verification messages. Engine calls it off the request
// path; its errors are logged and never reach the registering client.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenTypeBearer is the token_type reported with every [TokenPair].
const TokenTypeBearer = "bearer"
