package mateauth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func engineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type memStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*User
	created int
	failAll error
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]*User)}
}

func (m *memStore) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*User, error) {
	return m.find(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memStore) FindByUsername(_ context.Context, username string) (*User, error) {
	return m.find(func(u *User) bool { return u.Username == username })
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *memStore) Create(_ context.Context, in NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, u := range m.byID {
		if u.Email == in.Email {
			return nil, ErrEmailTaken
		}
		if u.Username == in.Username {
			return nil, ErrUsernameTaken
		}
	}
	u := &User{
		ID:           uuid.New(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[u.ID] = u
	m.created++
	cp := *u
	return &cp, nil
}

func (m *memStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Verified = true
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memStore) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memStore) get(id uuid.UUID) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type capturedMessage struct {
	email string
	token string
}

type captureNotifier struct {
	ch chan capturedMessage
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan capturedMessage, 64)}
}

func (n *captureNotifier) SendVerification(_ context.Context, email, token string) error {
	select {
	case n.ch <- capturedMessage{email: email, token: token}:
	default:
	}
	return nil
}

func (n *captureNotifier) next(t *testing.T) capturedMessage {
	t.Helper()
	select {
	case m := <-n.ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("expected a verification message")
		return capturedMessage{}
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type testEngine struct {
	*Engine
	store    *memStore
	notifier *captureNotifier
	mr       *miniredis.Miniredis
	rdb      *redis.Client
}

func newTestEngine(t *testing.T, cfg Config, opts ...func(*Builder)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	store := newMemStore()
	notifier := newCaptureNotifier()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithNotifier(notifier).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEngine{Engine: engine, store: store, notifier: notifier, mr: mr, rdb: rdb}
}

// registerVerified registers an account and confirms its email.
func (te *testEngine) registerVerified(t *testing.T, email, username, password string) *User {
	t.Helper()

	u, err := te.Register(context.Background(), RegisterRequest{Email: email, Username: username, Password: password})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	msg := te.notifier.next(t)
	if err := te.VerifyEmail(context.Background(), msg.token); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	return u
}
