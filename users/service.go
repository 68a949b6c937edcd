package users

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/internal/logging"
)

// Paging bounds for follower listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxBioLength     = 500
)

// Profile is the public view of an account.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Bio      string    `json:"bio"`
}

// Account is the owner's view of an account.
type Account struct {
	Profile
	Email     string    `json:"email"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*mateauth.User, error)
	UpdateBio(ctx context.Context, id uuid.UUID, bio string) (*mateauth.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Follow(ctx context.Context, subscriber, author uuid.UUID) error
	Unfollow(ctx context.Context, subscriber, author uuid.UUID) error
	Followers(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error)
	Following(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error)
}

// SessionRevoker ends every session of a user. *mateauth.Engine implements it.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID uuid.UUID) error
}

// Service implements profile and subscription operations.
type Service struct {
	store    Store
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewService returns a Service. A nil logger discards output.
func NewService(store Store, sessions SessionRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{store: store, sessions: sessions, logger: logger}
}

// Public returns the public profile of id.
func (s *Service) Public(ctx context.Context, id uuid.UUID) (*Profile, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	p := profileOf(u)
	return &p, nil
}

// Private returns the owner's view of id.
func (s *Service) Private(ctx context.Context, id uuid.UUID) (*Account, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	a := accountOf(u)
	return &a, nil
}

// UpdateBio replaces the caller's bio.
func (s *Service) UpdateBio(ctx context.Context, caller uuid.UUID, bio string) (*Account, error) {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, mateauth.ValidationError("Bio must be at most 500 characters")
	}
	u, err := s.store.UpdateBio(ctx, caller, bio)
	if err != nil {
		return nil, s.storeError("update bio", err)
	}
	a := accountOf(u)
	return &a, nil
}

// DeleteAccount revokes every session of caller, then deletes the account.
// A session backend failure aborts before the account is touched.
func (s *Service) DeleteAccount(ctx context.Context, caller uuid.UUID) error {
	if err := s.sessions.LogoutAll(ctx, caller); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, caller); err != nil {
		return s.storeError("delete account", err)
	}
	s.logger.InfoContext(ctx, "users.deleted", slog.String("user_id", caller.String()))
	return nil
}

// Follow subscribes caller to author.
func (s *Service) Follow(ctx context.Context, caller, author uuid.UUID) error {
	if caller == author {
		return mateauth.ValidationError("You cannot follow yourself")
	}
	if _, err := s.find(ctx, author); err != nil {
		return err
	}
	if err := s.store.Follow(ctx, caller, author); err != nil {
		return s.storeError("follow", err)
	}
	return nil
}

// Unfollow removes the subscription of caller to author.
func (s *Service) Unfollow(ctx context.Context, caller, author uuid.UUID) error {
	if err := s.store.Unfollow(ctx, caller, author); err != nil {
		return s.storeError("unfollow", err)
	}
	return nil
}

// Followers pages through the accounts following id. A zero limit selects
// [DefaultPageLimit].
func (s *Service) Followers(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error) {
	limit, err := s.page(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Followers(ctx, id, limit, offset)
	if err != nil {
		return nil, s.storeError("followers", err)
	}
	return out, nil
}

// Following pages through the accounts id follows.
func (s *Service) Following(ctx context.Context, id uuid.UUID, limit, offset int) ([]Profile, error) {
	limit, err := s.page(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Following(ctx, id, limit, offset)
	if err != nil {
		return nil, s.storeError("following", err)
	}
	return out, nil
}

func (s *Service) page(ctx context.Context, id uuid.UUID, limit, offset int) (int, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit < 1 || limit > MaxPageLimit {
		return 0, mateauth.ValidationError("limit must be between 1 and 100")
	}
	if offset < 0 {
		return 0, mateauth.ValidationError("offset must not be negative")
	}
	if _, err := s.find(ctx, id); err != nil {
		return 0, err
	}
	return limit, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*mateauth.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError("find", err)
	}
	return u, nil
}

// storeError passes kinded errors through and tags everything else as an
// infrastructure failure.
func (s *Service) storeError(op string, err error) error {
	if mateauth.Kind(err) != nil {
		return err
	}
	s.logger.Error("users.store_failed", slog.String("op", op), slog.Any("err", err))
	return mateauth.Infrastructure("users "+op, err)
}

func profileOf(u *mateauth.User) Profile {
	return Profile{ID: u.ID, Username: u.Username, Bio: u.Bio}
}

func accountOf(u *mateauth.User) Account {
	return Account{
		Profile:   profileOf(u),
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}
