package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	authcore "github.com/kmorrell/authcore"
	"github.com/kmorrell/authcore/password"
)

type stubUserStore struct {
	mu         sync.RWMutex
	byID       map[string]authcore.UserRecord
	byUsername map[string]string
	byEmail    map[string]string
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		byID:       make(map[string]authcore.UserRecord),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *stubUserStore) put(u authcore.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
}

func (s *stubUserStore) FindByUsername(_ context.Context, username string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byUsername[username]; ok {
		return s.byID[id], nil
	}
	return authcore.UserRecord{}, authcore.ErrUserNotFound
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[email]; ok {
		return s.byID[id], nil
	}
	return authcore.UserRecord{}, authcore.ErrUserNotFound
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (authcore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return authcore.UserRecord{}, authcore.ErrUserNotFound
}

func (s *stubUserStore) Create(_ context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	u := authcore.UserRecord{
		ID:           input.ID,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Active:       input.Active,
	}
	s.put(u)
	return u, nil
}

func (s *stubUserStore) Update(_ context.Context, record authcore.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[record.ID] = record
	return nil
}

func newGuardedEngine(t *testing.T) (*authcore.Engine, authcore.TokenPair) {
	t.Helper()

	cfg := authcore.DefaultConfig()
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")

	store := newStubUserStore()
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := hasher.Hash("P@ssw0rd1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	store.put(authcore.UserRecord{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         authcore.RoleUser,
		Active:       true,
	})

	engine, err := authcore.New().
		WithConfig(cfg).
		WithUserStore(store).
		WithPermissions([]string{"notes.read", "notes.write"}).
		WithRoles(map[string][]string{
			authcore.RoleUser:  {"notes.read"},
			authcore.RoleAdmin: {"notes.read", "notes.write"},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	pair, err := engine.Login(context.Background(), "alice", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return engine, pair
}

func echoUsername(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uc, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatal("guarded handler reached without user context")
		}
		w.Write([]byte(uc.Username))
	})
}

func TestGuardAllowsValidToken(t *testing.T) {
	engine, pair := newGuardedEngine(t)
	handler := Guard(engine)(echoUsername(t))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "alice" {
		t.Fatalf("body = %q, want alice", rec.Body.String())
	}
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine, _ := newGuardedEngine(t)
	handler := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestGuardRoleForbidden(t *testing.T) {
	engine, pair := newGuardedEngine(t)
	handler := GuardRole(engine, authcore.RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGuardPermission(t *testing.T) {
	engine, pair := newGuardedEngine(t)

	allowed := GuardPermission(engine, "notes.read")(echoUsername(t))
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("granted permission: status = %d, want 200", rec.Code)
	}

	denied := GuardPermission(engine, "notes.write")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing permission: status = %d, want 403", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	engine, pair := newGuardedEngine(t)
	handler := OptionalAuth(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uc, ok := UserFromContext(r.Context()); ok {
			w.Write([]byte(uc.Username))
			return
		}
		w.Write([]byte("anonymous"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Body.String() != "alice" {
		t.Fatalf("with token: body = %q, want alice", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Body.String() != "anonymous" {
		t.Fatalf("without token: body = %q, want anonymous", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Body.String() != "anonymous" {
		t.Fatalf("with bad token: body = %q, want anonymous", rec.Body.String())
	}
}
