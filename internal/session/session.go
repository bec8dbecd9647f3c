// Package session holds the single source of truth for who is logged in.
//
// A Store keeps the bearer token and the cached user in memory and mirrors
// both into a persisted record: written together on login and signup,
// deleted together on logout, read back once by Restore at startup.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/expensectl/internal/api"
	"github.com/me/expensectl/internal/logging"
	"github.com/me/expensectl/internal/store"
	"github.com/me/expensectl/pkg/model"
)

// Keys of the persisted session record.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Authenticator is the part of the API client the session store calls.
type Authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) api.Envelope[model.AuthResponse]
	Signup(ctx context.Context, req model.SignupRequest) api.Envelope[model.AuthResponse]
}

// Session is a snapshot of the authenticated identity. User and Token are
// either both set or both empty.
type Session struct {
	User  *model.User
	Token string
}

// Empty reports whether nobody is logged in.
func (s Session) Empty() bool {
	return s.User == nil && s.Token == ""
}

// Store owns the in-memory session and its persisted record.
type Store struct {
	auth    Authenticator
	backend store.Store
	logger  *slog.Logger

	mu    sync.RWMutex
	user  *model.User
	token string
}

// New creates an empty session store. Call Restore to load a previously
// persisted session.
func New(auth Authenticator, backend store.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		auth:    auth,
		backend: backend,
		logger:  logger.With("component", "session"),
	}
}

// Current returns a copy of the current session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Session{}
	}
	u := *s.user
	return Session{User: &u, Token: s.token}
}

// Token returns the bearer token, or "" when logged out. It satisfies
// api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a session is present.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Restore loads the persisted record into memory. A missing, partial or
// corrupt record leaves the session empty; the bad record is removed.
// Restore never fails the caller.
func (s *Store) Restore(ctx context.Context) {
	user, token, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("discarding persisted session", "error", err)
		if delErr := s.backend.DeleteAll(ctx, KeyToken, KeyUser); delErr != nil {
			s.logger.Warn("delete persisted session", "error", delErr)
		}
		s.set(nil, "")
		return
	}
	s.set(user, token)
	if user != nil {
		s.logger.Debug("session restored", "user_id", user.ID, "role", user.Role)
	}
}

// load returns (nil, "", nil) when no record exists at all.
func (s *Store) load(ctx context.Context) (*model.User, string, error) {
	token, hasToken, err := s.backend.Get(ctx, KeyToken)
	if err != nil {
		return nil, "", fmt.Errorf("read token: %w", err)
	}
	raw, hasUser, err := s.backend.Get(ctx, KeyUser)
	if err != nil {
		return nil, "", fmt.Errorf("read user: %w", err)
	}
	switch {
	case !hasToken && !hasUser:
		return nil, "", nil
	case !hasToken || token == "":
		return nil, "", fmt.Errorf("record has a user but no token")
	case !hasUser:
		return nil, "", fmt.Errorf("record has a token but no user")
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, "", fmt.Errorf("decode user: %w", err)
	}
	if err := u.Validate(); err != nil {
		return nil, "", err
	}
	return &u, token, nil
}

// Login authenticates with email and password. On success the session and
// the persisted record both hold the returned token and user. On failure
// the session is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	env := s.auth.Login(ctx, model.LoginRequest{Email: email, Password: password})
	return s.establish(ctx, env, "Login failed")
}

// Signup registers a new company with its first user and logs that user in.
func (s *Store) Signup(ctx context.Context, req model.SignupRequest) Result {
	env := s.auth.Signup(ctx, req)
	return s.establish(ctx, env, "Signup failed")
}

func (s *Store) establish(ctx context.Context, env api.Envelope[model.AuthResponse], fallback string) Result {
	if env.Err != nil {
		return failed(kindOf(env.Err.Kind), env.Message(fallback))
	}
	resp := env.Data
	if resp == nil || resp.AccessToken == "" {
		return failed(MalformedResponse, "malformed response: access_token missing")
	}
	if err := resp.User.Validate(); err != nil {
		return failed(MalformedResponse, "malformed response: "+err.Error())
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return failed(MalformedResponse, "malformed response: "+err.Error())
	}
	// Persist first so a failed write leaves memory and disk agreeing.
	if err := s.backend.SetAll(ctx, map[string]string{
		KeyToken: resp.AccessToken,
		KeyUser:  string(userJSON),
	}); err != nil {
		s.logger.Error("persist session", "error", err)
		return failed(PersistFailure, "Could not save session: "+err.Error())
	}

	u := *resp.User
	s.set(&u, resp.AccessToken)
	s.logger.Info("logged in", "user_id", u.ID, "role", u.Role, "token", resp.AccessToken)
	return Result{OK: true}
}

// Logout clears the session and deletes the persisted record. It has no
// network effect and always leaves the session empty.
func (s *Store) Logout(ctx context.Context) {
	s.set(nil, "")
	if err := s.backend.DeleteAll(ctx, KeyToken, KeyUser); err != nil {
		s.logger.Warn("delete persisted session", "error", err)
		return
	}
	s.logger.Info("logged out")
}

// Close releases the persistence backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) set(u *model.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.token = token
}
