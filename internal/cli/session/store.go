// Package session owns the client's belief about who is logged in. A Store
// holds the bearer token, persists it through an auth.TokenStore, and caches
// the user returned by /auth/me.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/healthlens-dev/healthlens/internal/cli/auth"
	"github.com/healthlens-dev/healthlens/internal/cli/client"
)

// Status is the authentication state of a Store.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusLoading
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot handed to observers. User is non-nil only when
// Status is StatusAuthenticated.
type State struct {
	Status Status
	User   *client.User
	// Expired is set on the transition caused by a 401.
	Expired bool
	// Unverified is the network error that kept Init from checking a stored
	// token. The token is kept for the next run.
	Unverified error
}

// API is the subset of the request client the store drives.
type API interface {
	Login(ctx context.Context, email, password string) (*client.TokenResponse, error)
	Register(ctx context.Context, email, password, fullName string) (*client.TokenResponse, error)
	GoogleLogin(ctx context.Context, idToken string) (*client.TokenResponse, error)
	Me(ctx context.Context) (*client.User, error)
}

// Store is the single authority for "am I logged in, and as whom" for one
// server. It implements client.Credentials.
type Store struct {
	api      API
	tokens   auth.TokenStore
	server   string
	logger   zerolog.Logger
	validate *validator.Validate

	// persistMu orders writes to tokens with the in-memory token they belong to.
	persistMu sync.Mutex

	mu         sync.RWMutex
	token      string
	user       *client.User
	status     Status
	unverified error

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]func(State)
}

// New creates a Store in the loading state. Call Init to run the startup check.
func New(api API, tokens auth.TokenStore, serverURL string, logger zerolog.Logger) *Store {
	return &Store{
		api:       api,
		tokens:    tokens,
		server:    serverURL,
		logger:    logger.With().Str("component", "session").Logger(),
		validate:  client.NewValidator(),
		status:    StatusLoading,
		observers: make(map[int]func(State)),
	}
}

// Init restores a persisted session. A missing token settles to
// unauthenticated without a network call; a token the API no longer accepts
// is discarded silently. When the API cannot be reached the token stays
// persisted and State().Unverified holds the network error.
func (s *Store) Init(ctx context.Context) State {
	token, err := s.tokens.LoadToken(s.server)
	if err != nil {
		if !errors.Is(err, auth.ErrNoToken) {
			s.logger.Warn().Err(err).Msg("Failed to read stored token")
		}
		s.clearMemory(false)
		return s.State()
	}

	s.set(token, nil, StatusLoading, false)

	user, err := s.api.Me(ctx)
	if errors.Is(err, client.ErrNetwork) {
		s.logger.Debug().Err(err).Msg("API unreachable, keeping stored token")
		s.clearMemory(false)
		s.mu.Lock()
		s.unverified = err
		s.mu.Unlock()
		return s.State()
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("Stored token was not accepted, clearing it")
		if err := s.clear(false); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to delete stored token")
		}
		return s.State()
	}

	s.set(token, user, StatusAuthenticated, false)
	return s.State()
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := client.ValidateInput(s.validate, client.LoginRequest{Email: email, Password: password}); err != nil {
		return err
	}

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return classify("login", err)
	}
	return s.establish(ctx, resp.AccessToken)
}

// Register creates an account and logs into it.
func (s *Store) Register(ctx context.Context, email, password, name string) error {
	input := client.RegisterRequest{Email: email, Password: password, FullName: name}
	if err := client.ValidateInput(s.validate, input); err != nil {
		return err
	}

	resp, err := s.api.Register(ctx, email, password, name)
	if err != nil {
		return classify("register", err)
	}
	return s.establish(ctx, resp.AccessToken)
}

// ExchangeExternalCredential trades a third-party identity token (a Google
// ID token) for a session.
func (s *Store) ExchangeExternalCredential(ctx context.Context, providerToken string) error {
	if providerToken == "" {
		return &client.ValidationError{Field: "token", Message: "is required"}
	}

	resp, err := s.api.GoogleLogin(ctx, providerToken)
	if err != nil {
		return classify("google-login", err)
	}
	return s.establish(ctx, resp.AccessToken)
}

// Logout forgets the session. The in-memory state is always cleared; the
// returned error only reports a failure to delete the persisted token.
func (s *Store) Logout() error {
	return s.clear(false)
}

// Token implements client.Credentials.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Invalidate implements client.Credentials. It only drops the session when
// token is still the current one: a late 401 for a request sent before a
// new login leaves the new session alone. Repeated calls are no-ops.
// Observers see Expired only when an authenticated session was rejected.
func (s *Store) Invalidate(token string) {
	s.persistMu.Lock()
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return
	}
	// A 401 while still loading (startup check, right after login) is not
	// reported as an expiry.
	expired := s.status == StatusAuthenticated
	s.token, s.user, s.status, s.unverified = "", nil, StatusUnauthenticated, nil
	s.mu.Unlock()
	err := s.tokens.DeleteToken(s.server)
	s.persistMu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete expired token")
	}
	s.notify(State{Status: StatusUnauthenticated, Expired: expired})
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Status: s.status, User: s.user, Unverified: s.unverified}
}

// CurrentUser returns the cached user, or nil when not authenticated.
func (s *Store) CurrentUser() *client.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Server returns the API base URL this session belongs to.
func (s *Store) Server() string {
	return s.server
}

// TokenExpiry reads the exp claim of the current token without verifying
// its signature. ok is false when there is no token, it is not a JWT, or it
// has no expiry.
func (s *Store) TokenExpiry() (expiresAt time.Time, ok bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subscribe registers fn for every state transition. fn runs on the
// goroutine that caused the transition and must not call back into
// Subscribe or the returned function.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// establish persists a freshly issued token and loads the user behind it.
func (s *Store) establish(ctx context.Context, token string) error {
	s.persistMu.Lock()
	if err := s.tokens.SaveToken(s.server, token); err != nil {
		s.persistMu.Unlock()
		return fmt.Errorf("failed to save authentication token: %w", err)
	}
	changed := s.swap(token, nil, StatusLoading)
	s.persistMu.Unlock()
	if changed {
		s.notify(State{Status: StatusLoading})
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		if clearErr := s.clear(false); clearErr != nil {
			s.logger.Warn().Err(clearErr).Msg("Failed to delete stored token")
		}
		return fmt.Errorf("failed to load user profile: %w", err)
	}

	s.set(token, user, StatusAuthenticated, false)
	s.logger.Debug().Str("user_id", user.ID).Msg("Session established")
	return nil
}

// clear drops the in-memory session and then the persisted token.
func (s *Store) clear(expired bool) error {
	s.persistMu.Lock()
	changed := s.swap("", nil, StatusUnauthenticated)
	err := s.tokens.DeleteToken(s.server)
	s.persistMu.Unlock()

	if changed {
		s.notify(State{Status: StatusUnauthenticated, Expired: expired})
	}
	return err
}

func (s *Store) clearMemory(expired bool) {
	s.set("", nil, StatusUnauthenticated, expired)
}

func (s *Store) set(token string, user *client.User, status Status, expired bool) {
	if status != StatusAuthenticated {
		user = nil
	}

	if s.swap(token, user, status) {
		s.notify(State{Status: status, User: user, Expired: expired})
	}
}

// swap replaces the in-memory session and reports whether it changed.
func (s *Store) swap(token string, user *client.User, status Status) bool {
	if status != StatusAuthenticated {
		user = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.token != token || s.user != user || s.status != status
	s.token = token
	s.user = user
	s.status = status
	s.unverified = nil
	return changed
}

func (s *Store) notify(state State) {
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
