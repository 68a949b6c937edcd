package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memStore backs both the engine and the users service.
type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*mateauth.User
	subs map[[2]uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{byID: map[uuid.UUID]*mateauth.User{}, subs: map[[2]uuid.UUID]bool{}}
}

func (m *memStore) find(match func(*mateauth.User) bool) (*mateauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, mateauth.ErrUserNotFound
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*mateauth.User, error) {
	return m.find(func(u *mateauth.User) bool { return u.Email == email })
}

func (m *memStore) FindByUsername(_ context.Context, username string) (*mateauth.User, error) {
	return m.find(func(u *mateauth.User) bool { return u.Username == username })
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*mateauth.User, error) {
	return m.find(func(u *mateauth.User) bool { return u.ID == id })
}

func (m *memStore) Create(_ context.Context, in mateauth.NewUser) (*mateauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == in.Email {
			return nil, mateauth.ErrEmailTaken
		}
		if u.Username == in.Username {
			return nil, mateauth.ErrUsernameTaken
		}
	}
	u := &mateauth.User{
		ID:           uuid.New(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memStore) update(id uuid.UUID, fn func(*mateauth.User)) (*mateauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, mateauth.ErrUserNotFound
	}
	fn(u)
	cp := *u
	return &cp, nil
}

func (m *memStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	_, err := m.update(id, func(u *mateauth.User) { u.Verified = true })
	return err
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	_, err := m.update(id, func(u *mateauth.User) { u.PasswordHash = hash })
	return err
}

func (m *memStore) UpdateBio(_ context.Context, id uuid.UUID, bio string) (*mateauth.User, error) {
	return m.update(id, func(u *mateauth.User) { u.Bio = bio })
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return mateauth.ErrUserNotFound
	}
	delete(m.byID, id)
	for k := range m.subs {
		if k[0] == id || k[1] == id {
			delete(m.subs, k)
		}
	}
	return nil
}

func (m *memStore) Follow(_ context.Context, subscriber, author uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{subscriber, author}
	if m.subs[key] {
		return mateauth.ErrAlreadyFollowing
	}
	m.subs[key] = true
	return nil
}

func (m *memStore) Unfollow(_ context.Context, subscriber, author uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{subscriber, author}
	if !m.subs[key] {
		return mateauth.ErrNotFollowing
	}
	delete(m.subs, key)
	return nil
}

func (m *memStore) profiles(pick func(k [2]uuid.UUID) (uuid.UUID, bool)) []users.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []users.Profile{}
	for k := range m.subs {
		if id, ok := pick(k); ok {
			u := m.byID[id]
			out = append(out, users.Profile{ID: u.ID, Username: u.Username, Bio: u.Bio})
		}
	}
	return out
}

func (m *memStore) Followers(_ context.Context, id uuid.UUID, _, _ int) ([]users.Profile, error) {
	return m.profiles(func(k [2]uuid.UUID) (uuid.UUID, bool) { return k[0], k[1] == id }), nil
}

func (m *memStore) Following(_ context.Context, id uuid.UUID, _, _ int) ([]users.Profile, error) {
	return m.profiles(func(k [2]uuid.UUID) (uuid.UUID, bool) { return k[1], k[0] == id }), nil
}

type captureNotifier struct {
	ch chan string
}

func (n *captureNotifier) SendVerification(_ context.Context, _, token string) error {
	select {
	case n.ch <- token:
	default:
	}
	return nil
}

func (n *captureNotifier) next(t *testing.T) string {
	t.Helper()
	select {
	case tok := <-n.ch:
		return tok
	case <-time.After(2 * time.Second):
		t.Fatal("expected a verification token")
		return ""
	}
}

type testServer struct {
	srv      *httptest.Server
	store    *memStore
	notifier *captureNotifier
	mr       *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := mateauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true

	store := newMemStore()
	notifier := &captureNotifier{ch: make(chan string, 16)}

	engine, err := mateauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithNotifier(notifier).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	svc := users.NewService(store, engine, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mateauth_login_success_total 0\n"))
	})

	srv := httptest.NewServer(NewHandler(engine, svc, WithMetrics(metrics)).Routes())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: store, notifier: notifier, mr: mr}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (ts *testServer) do(t *testing.T, method, path, contentType, body string, headers map[string]string) response {
	t.Helper()

	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	out := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	_ = json.Unmarshal(raw, &out.body)
	return out
}

func (ts *testServer) postJSON(t *testing.T, path, body string, headers map[string]string) response {
	t.Helper()
	return ts.do(t, http.MethodPost, path, "application/json", body, headers)
}

func (ts *testServer) login(t *testing.T, email, password, userAgent string) response {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	return ts.do(t, http.MethodPost, "/auth/login", "application/x-www-form-urlencoded", form.Encode(),
		map[string]string{"User-Agent": userAgent})
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// signup registers and verifies an account, then logs in.
func (ts *testServer) signup(t *testing.T, email, username string) (access, refresh string) {
	t.Helper()
	body := `{"email":"` + email + `","username":"` + username + `","password":"Passw0rd1"}`
	require.Equal(t, http.StatusCreated, ts.postJSON(t, "/auth/register", body, nil).status)

	token := ts.notifier.next(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/auth/verify?token="+url.QueryEscape(token), "", "", nil).status)

	resp := ts.login(t, email, "Passw0rd1", "test-agent")
	require.Equal(t, http.StatusOK, resp.status)
	return resp.body["access_token"].(string), resp.body["refresh_token"].(string)
}
