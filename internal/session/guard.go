// package session owns the authenticated identity and the token lifecycle.
//
// Guard maintains exactly one authoritative Session derived from the persisted
// access token. Protected commands and views consult [Guard.Authenticated]
// before running; every authorization rejection from the backend funnels back
// into [Guard.HandleAuthReject] through the request layer's single hook.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/shared"
)

// Credentials carries the fields submitted to the auth endpoints. UserName is
// only used by Register.
type Credentials struct {
	UserName string `json:"userName,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthAPI is the slice of the backend the guard needs: the two credential
// endpoints, both returning a signed access token.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (string, error)
	Register(ctx context.Context, creds Credentials) (string, error)
}

// Guard holds the current session and performs all token lifecycle
// operations. The zero session ("logged out") is represented by a nil pointer.
type Guard struct {
	store  *Store
	auth   AuthAPI
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	session *models.Session
	loading bool
}

// NewGuard creates a session guard over the given token store and auth API.
func NewGuard(store *Store, auth AuthAPI, logger *log.Logger) *Guard {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Guard{
		store:   store,
		auth:    auth,
		logger:  logger,
		now:     time.Now,
		loading: true,
	}
}

// Initialize loads the persisted token, if any, and decodes it into a
// Session. A token that fails to decode is cleared and the guard is left
// empty; that is local recovery, not an error. Initialize must complete
// before any protected view renders.
func (g *Guard) Initialize() error {
	defer func() {
		g.mu.Lock()
		g.loading = false
		g.mu.Unlock()
	}()

	token, err := g.store.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	sess, err := decodeToken(token)
	if err != nil {
		g.logger.Warnf("discarding undecodable persisted token: %v", err)
		return g.store.Clear()
	}

	g.mu.Lock()
	g.session = sess
	g.mu.Unlock()
	g.logger.Debugf("restored session for %s", sess.Email)
	return nil
}

// Loading reports whether Initialize has not yet completed.
func (g *Guard) Loading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading
}

// Login submits credentials, persists the returned token and swaps the
// session in one step. On failure the prior session is left untouched.
func (g *Guard) Login(ctx context.Context, creds Credentials) error {
	token, err := g.auth.Login(ctx, creds)
	if err != nil {
		return err
	}
	return g.adopt(token)
}

// Register creates an account and establishes a session exactly like Login.
func (g *Guard) Register(ctx context.Context, creds Credentials) error {
	token, err := g.auth.Register(ctx, creds)
	if err != nil {
		return err
	}
	return g.adopt(token)
}

// adopt decodes the freshly issued token, persists it, and installs the new
// session. The decode happens before the store write so the token/session
// invariant holds: no persisted token without a decodable session.
func (g *Guard) adopt(token string) error {
	sess, err := decodeToken(token)
	if err != nil {
		return fmt.Errorf("%w: backend issued undecodable token: %v", shared.ErrTokenDecode, err)
	}
	if err := g.store.Save(token); err != nil {
		return err
	}

	g.mu.Lock()
	g.session = sess
	g.mu.Unlock()
	g.logger.Infof("session established for %s", sess.Email)
	return nil
}

// Logout clears the persisted token and the session synchronously. No network
// call is made.
func (g *Guard) Logout() error {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	return g.store.Clear()
}

// HandleAuthReject is the request layer's hook for authorization rejections.
// Any 401 from any call lands here and forces a full logout.
func (g *Guard) HandleAuthReject() {
	g.logger.Warn("authorization rejected by backend, clearing session")
	if err := g.Logout(); err != nil {
		g.logger.Errorf("failed to clear session: %v", err)
	}
}

// Current returns a copy of the active session, if any.
func (g *Guard) Current() (models.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return models.Session{}, false
	}
	return *g.session, true
}

// Authenticated is the route-access predicate: true only for a non-empty,
// non-expired session judged against wall-clock time at decision time.
func (g *Guard) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session != nil && !g.session.Expired(g.now())
}

// Require returns an error suitable for protected commands when no valid
// session exists, distinguishing expiry from absence.
func (g *Guard) Require() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return fmt.Errorf("%w: run `restora auth login` first", shared.ErrNotAuthenticated)
	}
	if g.session.Expired(g.now()) {
		return fmt.Errorf("%w: run `restora auth login` again", shared.ErrSessionExpired)
	}
	return nil
}

// decodeToken extracts Session claims from a signed token without verifying
// the signature. The client holds no signing secret; validity is the
// backend's job, and the reactive 401 path catches anything stale. A token
// that cannot be decoded is treated identically to no token at all.
func decodeToken(token string) (*models.Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenDecode, err)
	}

	sess := &models.Session{}

	// sub may arrive as a string or a JSON number depending on the backend.
	switch v := claims["sub"].(type) {
	case string:
		sess.SubjectID = v
	case float64:
		sess.SubjectID = strconv.FormatInt(int64(v), 10)
	default:
		return nil, fmt.Errorf("%w: missing sub claim", shared.ErrTokenDecode)
	}

	if name, ok := claims["userName"].(string); ok {
		sess.DisplayName = name
	}
	if email, ok := claims["email"].(string); ok {
		sess.Email = email
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		sess.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}

	return sess, nil
}
