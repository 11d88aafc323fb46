// Package apitest runs an in-process fake of the FinTrack REST API.
//
// The fake keeps users, one-time login codes and finance resources in
// memory, issues HS256 bearer tokens and verifies messenger widget
// signatures the way the real backend does. Tests use it to exercise the
// client stack end to end and to count how often each route was hit.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// BotToken is the widget signing secret shared with tests.
	BotToken = "123456:fintrack-test-bot"

	// CodeTTL is how long a one-time login code stays valid.
	CodeTTL = 5 * time.Minute

	tokenTTL = time.Hour
)

type account struct {
	models.User
	passwordHash []byte
}

type loginCode struct {
	userID  int64
	expires time.Time
}

// Server is the fake API. All methods are safe for concurrent use.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	now          func() time.Time
	users        map[int64]*account
	codes        map[string]loginCode
	lastCode     map[string]string
	revoked      map[string]bool
	hits         map[string]int
	accounts     map[int64]models.Account
	categories   map[int64]models.Category
	transactions map[int64]models.Transaction
	nextID       int64
	codeSeq      int
}

// New starts a fake API and stops it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:       []byte("fintrack-test-secret"),
		now:          func() time.Time { return time.Now().UTC() },
		users:        map[int64]*account{},
		codes:        map[string]loginCode{},
		lastCode:     map[string]string{},
		revoked:      map[string]bool{},
		hits:         map[string]int{},
		accounts:     map[int64]models.Account{},
		categories:   map[int64]models.Category{},
		transactions: map[int64]models.Transaction{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)

	return s
}

// URL is the API base URL, e.g. "http://127.0.0.1:51234/api".
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Close stops the listener; later calls fail with a transport error.
func (s *Server) Close() {
	s.srv.Close()
}

// Advance moves the fake clock forward.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.now
	s.now = func() time.Time { return prev().Add(d) }
}

// Hits returns how many requests matched route, e.g. "GET /api/auth/me".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countHits)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/login-by-telegram-username", s.handleMagicLink)
			r.Post("/verify-telegram-login", s.handleVerify)
			r.Post("/telegram", s.handleWidgetLogin)
			r.With(s.authenticate).Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/users/me", s.handleMe)
			r.Put("/users/me", s.handleUpdateMe)
			r.Post("/users/me/set-password", s.handleSetPassword)
			r.Post("/users/me/connect-telegram", s.handleConnectWidget)

			r.Get("/accounts", s.handleListAccounts)
			r.Post("/accounts", s.handleCreateAccount)
			r.Get("/accounts/{id}", s.handleGetAccount)
			r.Put("/accounts/{id}", s.handleUpdateAccount)
			r.Delete("/accounts/{id}", s.handleDeleteAccount)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Get("/categories/{id}", s.handleGetCategory)
			r.Put("/categories/{id}", s.handleUpdateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/dashboard/stats", s.handleDashboard)
		})
	})

	return r
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.mu.Lock()
		s.hits[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

type userIDKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		id, err := s.parseToken(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := contextWithUser(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Token issues a valid credential for userID.
func (s *Server) Token(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

// ExpiredToken issues a correctly signed credential that is already expired.
func (s *Server) ExpiredToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return s.sign(jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * tokenTTL)),
		ExpiresAt: jwt.NewNumericDate(now.Add(-tokenTTL)),
	})
}

// Revoke makes the server reject token from now on.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

func (s *Server) issueLocked(userID int64) string {
	now := s.now()
	return s.sign(jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		ID:        strconv.FormatInt(s.nextSeqLocked(), 10),
	})
}

func (s *Server) sign(claims jwt.RegisteredClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return token
}

func (s *Server) parseToken(raw string) (int64, error) {

	s.mu.Lock()
	now := s.now()
	revoked := s.revoked[raw]
	s.mu.Unlock()

	if revoked {
		return 0, errors.New("token revoked")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return 0, errors.New("unknown user")
	}
	return id, nil
}

func (s *Server) nextSeqLocked() int64 {
	s.nextID++
	return s.nextID
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "invalid JSON body", "type": "json_invalid"}},
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
