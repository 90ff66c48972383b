// Package authtest runs an in-memory stand-in for the AutoAssist
// authentication API, for tests of code built on authsdk.
//
// Access tokens are HS256 JWTs stamped with the server's token generation;
// ExpireAccessTokens bumps the generation so every outstanding access token
// starts answering 401. Refresh tokens are opaque and, by default, rotate on
// every use. Passwords are kept in plain text: this is a test fixture.
package authtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/sessionkit/pkg/cryptox"
	"github.com/aussiebroadwan/sessionkit/pkg/httpx"
	"github.com/aussiebroadwan/sessionkit/pkg/idx"
	"github.com/aussiebroadwan/sessionkit/pkg/slogx"
)

// AccessTokenTTL matches the API's access token lifetime.
const AccessTokenTTL = 24 * time.Hour

// User is an account known to the fake API.
type User struct {
	ID           int64
	Name         string
	Email        string
	Password     string
	IsPremium    bool
	TrialExpired bool
}

func (u *User) profile() map[string]any {
	return map[string]any{
		"id":            u.ID,
		"nome":          u.Name,
		"email":         u.Email,
		"is_premium":    u.IsPremium,
		"trial_expired": u.TrialExpired,
	}
}

type accessClaims struct {
	Email      string `json:"email"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

type refreshGate struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
	doneOnce  sync.Once
}

// Server is the fake API. Embeds *httptest.Server for URL and Close.
type Server struct {
	*httptest.Server

	secret []byte

	mu             sync.Mutex
	users          map[string]*User // by lowercased email
	nextID         int64
	generation     int64
	refreshTokens  map[string]int64 // fingerprint -> user id
	rotateRefresh  bool
	omitRefresh    bool
	omitLoginUser  bool
	refreshUser    bool
	refreshDelay   time.Duration
	refreshStatus  int
	gate           *refreshGate
	loginLimiter   *rate.Limiter
	lastLogin      map[string]any
	lastRegister   map[string]any
	refreshBearers []string
	lastAuthz      string

	refreshCalls   atomic.Int64
	protectedCalls atomic.Int64
	logoutCalls    atomic.Int64
}

// NewServer starts a fake API and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	secret, err := cryptox.NewSigningKey()
	if err != nil {
		t.Fatalf("authtest: %v", err)
	}

	s := &Server{
		secret:        secret,
		users:         make(map[string]*User),
		refreshTokens: make(map[string]int64),
		rotateRefresh: true,
	}

	s.Server = httptest.NewServer(slogx.HTTPMiddleware(slogx.Discard())(s.routes()))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/cadastro", s.handleRegister)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.Handle("POST /api/logout", s.protected(s.handleLogout))
	mux.Handle("GET /api/user", s.protected(s.handleUser))
	mux.Handle("GET /api/verify-token", s.protected(s.handleVerify))
	mux.Handle("POST /api/chat", s.protected(s.handleChat))
	mux.Handle("GET /api/chat", s.protected(s.handleChat))

	return mux
}

// ============================================================================
// Fixture controls
// ============================================================================

// AddUser registers an account directly.
func (s *Server) AddUser(name, email, password string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password)
}

func (s *Server) addUserLocked(name, email, password string) *User {
	s.nextID++
	u := &User{ID: s.nextID, Name: name, Email: strings.ToLower(email), Password: password}
	s.users[u.Email] = u
	return u
}

// SetPremium flips the premium flag reported in profiles.
func (s *Server) SetPremium(email string, premium bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[strings.ToLower(email)]; ok {
		u.IsPremium = premium
	}
}

// ExpireAccessTokens makes every access token issued so far answer 401.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens forgets every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refreshTokens)
}

// SetRotateRefresh controls whether a refresh invalidates the presented
// refresh token and returns a new one. Default: true.
func (s *Server) SetRotateRefresh(rotate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateRefresh = rotate
}

// SetLoginRefreshToken controls whether login responses carry a refresh
// token. Default: true.
func (s *Server) SetLoginRefreshToken(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitRefresh = !include
}

// SetLoginUser controls whether login responses carry the profile.
// Default: true.
func (s *Server) SetLoginUser(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitLoginUser = !include
}

// SetRefreshUser controls whether refresh responses carry the profile.
func (s *Server) SetRefreshUser(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshUser = include
}

// SetRefreshDelay holds every refresh response for d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// SetRefreshStatus forces the refresh endpoint to answer status with an
// empty 2xx body (2xx) or an error body (otherwise). Zero restores normal
// behaviour.
func (s *Server) SetRefreshStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// LimitLogin throttles the login endpoint.
func (s *Server) LimitLogin(cfg httpx.RateLimitConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginLimiter = httpx.NewLimiter(cfg)
}

// BlockRefresh parks the next refresh requests until release is called.
// started is closed once the first of them arrives.
func (s *Server) BlockRefresh() (started <-chan struct{}, release func()) {
	g := &refreshGate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	s.mu.Lock()
	s.gate = g
	s.mu.Unlock()

	return g.started, func() {
		g.doneOnce.Do(func() {
			s.mu.Lock()
			if s.gate == g {
				s.gate = nil
			}
			s.mu.Unlock()
			close(g.release)
		})
	}
}

// ============================================================================
// Observations
// ============================================================================

// RefreshCalls returns how many requests reached the refresh endpoint.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// ProtectedCalls returns how many requests reached protected endpoints,
// accepted or not.
func (s *Server) ProtectedCalls() int { return int(s.protectedCalls.Load()) }

// LogoutCalls returns how many accepted requests reached the logout endpoint.
func (s *Server) LogoutCalls() int { return int(s.logoutCalls.Load()) }

// LastLogin returns the decoded body of the last login request.
func (s *Server) LastLogin() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLogin
}

// LastRegister returns the decoded body of the last registration request.
func (s *Server) LastRegister() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRegister
}

// LastAuthorization returns the Authorization header of the last request to
// a protected endpoint.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthz
}

// RefreshBearers returns the refresh tokens presented to the refresh
// endpoint, in arrival order.
func (s *Server) RefreshBearers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refreshBearers...)
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido", "")
		return
	}

	name := strings.TrimSpace(stringField(body, "nome"))
	email := strings.TrimSpace(stringField(body, "email"))
	password := stringField(body, "password")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRegister = body

	switch {
	case len(name) < 2:
		httpx.WriteError(w, http.StatusBadRequest, "Nome deve ter pelo menos 2 caracteres", "")
		return
	case !strings.Contains(email, "@") || !strings.Contains(email, "."):
		httpx.WriteError(w, http.StatusBadRequest, "Email inválido", "")
		return
	case len(password) < 6:
		httpx.WriteError(w, http.StatusBadRequest, "Senha deve ter pelo menos 6 caracteres", "")
		return
	case len(password) > 72:
		httpx.WriteError(w, http.StatusBadRequest, "Senha não pode ter mais de 72 caracteres", "")
		return
	}
	if _, exists := s.users[strings.ToLower(email)]; exists {
		httpx.WriteError(w, http.StatusConflict, "Email já cadastrado", "")
		return
	}

	s.addUserLocked(name, email, password)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Cadastro realizado com sucesso",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	limiter := s.loginLimiter
	s.mu.Unlock()
	if limiter != nil {
		httpx.RateLimit(limiter)(http.HandlerFunc(s.login)).ServeHTTP(w, r)
		return
	}
	s.login(w, r)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido", "")
		return
	}

	email := strings.ToLower(strings.TrimSpace(stringField(body, "email")))
	password := stringField(body, "password")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin = body

	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Email e senha são obrigatórios", "")
		return
	}

	u, ok := s.users[email]
	if !ok || u.Password != password {
		httpx.WriteError(w, http.StatusUnauthorized, "Email ou senha incorretos", "")
		return
	}

	access, err := s.issueAccessLocked(u)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Erro ao processar login", "")
		return
	}

	resp := map[string]any{"access_token": access}
	if !s.omitLoginUser {
		resp["user"] = u.profile()
	}
	if !s.omitRefresh {
		refresh, err := s.issueRefreshLocked(u)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "Erro ao processar login", "")
			return
		}
		resp["refresh_token"] = refresh
	}

	slogx.FromContext(r.Context()).Debug("login", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	raw, _ := httpx.BearerToken(r)

	s.mu.Lock()
	s.refreshBearers = append(s.refreshBearers, raw)
	gate := s.gate
	delay := s.refreshDelay
	forced := s.refreshStatus
	s.mu.Unlock()

	if gate != nil {
		gate.startOnce.Do(func() { close(gate.started) })
		select {
		case <-gate.release:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if forced != 0 {
		if forced >= 200 && forced < 300 {
			w.WriteHeader(forced)
			return
		}
		httpx.WriteError(w, forced, "Falha ao renovar token", "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fp := cryptox.Fingerprint(raw)
	userID, ok := s.refreshTokens[fp]
	if raw == "" || !ok {
		httpx.WriteBearerError(w, "Token inválido", "invalid_token")
		return
	}
	u := s.userByIDLocked(userID)
	if u == nil {
		httpx.WriteBearerError(w, "Token inválido", "invalid_token")
		return
	}

	access, err := s.issueAccessLocked(u)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Erro ao renovar token", "")
		return
	}

	resp := map[string]any{"access_token": access}
	if s.rotateRefresh {
		delete(s.refreshTokens, fp)
		refresh, err := s.issueRefreshLocked(u)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "Erro ao renovar token", "")
			return
		}
		resp["refresh_token"] = refresh
	}
	if s.refreshUser {
		resp["user"] = u.profile()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

type protectedHandler func(w http.ResponseWriter, r *http.Request, u *User)

// protected checks the access token before calling next.
func (s *Server) protected(next protectedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.protectedCalls.Add(1)

		s.mu.Lock()
		s.lastAuthz = r.Header.Get("Authorization")
		s.mu.Unlock()

		raw, ok := httpx.BearerToken(r)
		if !ok {
			httpx.WriteBearerError(w, "Token de autenticação ausente", "missing_token")
			return
		}

		claims := &accessClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			httpx.WriteBearerError(w, "Token inválido", "invalid_token")
			return
		}

		s.mu.Lock()
		current := s.generation
		u := s.users[claims.Email]
		s.mu.Unlock()

		if claims.Generation != current {
			httpx.WriteBearerError(w, "Token expirado", "token_expired")
			return
		}
		if u == nil {
			httpx.WriteError(w, http.StatusNotFound, "Usuário não encontrado", "")
			return
		}

		next(w, r.WithContext(slogx.WithContext(r.Context(),
			slogx.FromContext(r.Context()).With("user_id", u.ID))), u)
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *User) {
	s.logoutCalls.Add(1)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout realizado com sucesso",
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	profile := u.profile()
	s.mu.Unlock()

	profile["data_criacao"] = "2025-01-01T00:00:00Z"
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, u *User) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": u.ID})
}

// handleChat echoes the message so tests can check the body survived a retry.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, u *User) {
	var body struct {
		Message string `json:"message"`
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			httpx.WriteError(w, http.StatusBadRequest, "JSON inválido", "")
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"response": fmt.Sprintf("echo: %s", body.Message),
		"user_id":  u.ID,
	})
}

// ============================================================================
// Token issuing
// ============================================================================

func (s *Server) issueAccessLocked(u *User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Email:      u.Email,
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			ID:        idx.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) issueRefreshLocked(u *User) (string, error) {
	token, fp, err := cryptox.NewRefreshToken()
	if err != nil {
		return "", err
	}
	s.refreshTokens[fp] = u.ID
	return token, nil
}

func (s *Server) userByIDLocked(id int64) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func stringField(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}
