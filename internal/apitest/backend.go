// Package apitest provides an in-process fake of the expense API for tests.
// It implements the subset of the real backend's behavior the client
// depends on: JWT bearer auth, role-filtered listings, multipart expense
// submission with field validation, and the approval workflow's first step.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/me/expensectl/pkg/model"
)

const signingKey = "apitest-signing-key"

// Request is one recorded inbound request.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
}

type account struct {
	user     model.User
	password string
}

// Backend is a fake expense API served by httptest.
type Backend struct {
	srv    *httptest.Server
	router chi.Router

	mu        sync.Mutex
	nextID    int64
	accounts  map[string]*account // by email
	expenses  []*model.Expense
	approvals []*model.Approval
	risks     map[int64]model.RiskScore
	requests  []Request
	overrides map[string]http.HandlerFunc
}

// New starts a Backend and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		router:    chi.NewRouter(),
		nextID:    1,
		accounts:  make(map[string]*account),
		risks:     make(map[int64]model.RiskScore),
		overrides: make(map[string]http.HandlerFunc),
	}
	b.routes()
	b.srv = httptest.NewServer(b)
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the base address of the fake API.
func (b *Backend) URL() string { return b.srv.URL }

// Close stops the server; requests afterwards fail at the transport level.
func (b *Backend) Close() { b.srv.Close() }

// ServeHTTP records the request, then dispatches to an override or the router.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
	})
	h := b.overrides[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	b.router.ServeHTTP(w, r)
}

// Override replaces the handler for an exact method and path.
func (b *Backend) Override(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = h
}

// Requests returns a copy of every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestCount returns how many requests hit path.
func (b *Backend) RequestCount(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// AddUser seeds an account and returns the stored user.
func (b *Backend) AddUser(email, password, fullName string, role model.Role, managerID *int64) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password, fullName, role, managerID)
}

func (b *Backend) addUserLocked(email, password, fullName string, role model.Role, managerID *int64) model.User {
	company := int64(1)
	u := model.User{
		ID:        b.nextID,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		CompanyID: &company,
		ManagerID: managerID,
		CreatedAt: model.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	b.nextID++
	b.accounts[email] = &account{user: u, password: password}
	return u
}

// TokenFor mints a bearer token for u, the way the real backend does at login.
func TokenFor(u model.User) string {
	claims := jwt.MapClaims{
		"sub":     u.Email,
		"user_id": u.ID,
		"role":    string(u.Role),
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return tok
}

func (b *Backend) routes() {
	r := b.router
	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/signup", b.handleSignup)

	r.Group(func(r chi.Router) {
		r.Use(b.requireAuth)

		r.Get("/users/me", b.handleMe)
		r.Get("/users/", b.handleListUsers)
		r.Post("/users/", b.handleCreateUser)

		r.Get("/expenses/", b.handleListExpenses)
		r.Post("/expenses/", b.handleCreateExpense)
		r.Get("/expenses/{id}", b.handleGetExpense)
		r.Get("/expenses/{id}/risk", b.handleExpenseRisk)

		r.Get("/approvals/pending", b.handlePendingApprovals)
		r.Put("/approvals/{id}", b.handleDecideApproval)
		r.Get("/approvals/expense/{id}", b.handleExpenseApprovals)

		r.Get("/analytics/dashboard", b.handleDashboard)
		r.Get("/analytics/user-stats", b.handleUserStats)
	})
}

type ctxKey struct{}

// requireAuth resolves the bearer token to a user, answering 401 otherwise.
func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			detail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return []byte(signingKey), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			detail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		email, _ := claims["sub"].(string)

		b.mu.Lock()
		acct := b.accounts[email]
		b.mu.Unlock()
		if acct == nil {
			detail(w, http.StatusUnauthorized, "User not found")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, acct.user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) model.User {
	u, _ := r.Context().Value(ctxKey{}).(model.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// detail writes the backend's string error body.
func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"detail": msg})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// validationFailed writes the backend's 422 list-of-errors body.
func validationFailed(w http.ResponseWriter, where string, fields ...string) {
	errs := make([]fieldError, 0, len(fields))
	for _, f := range fields {
		errs = append(errs, fieldError{Loc: []string{where, f}, Msg: "Field required", Type: "missing"})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}
