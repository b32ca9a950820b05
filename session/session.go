package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	m "github.com/SanAntonik/MRS/models"
)

// Store holds the bearer token and the cached current-user record for one
// console session. It is passed explicitly to whoever needs read access;
// there is no ambient global state.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *m.User
}

func New() *Store { return &Store{} }

// SetToken replaces the stored access token.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the stored access token, or "" when logged out. Implements
// the client's TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether a usable token is stored: present and, when it
// carries an exp claim, not expired. The signature is not verified here;
// the server is the authority and rejects bad tokens anyway.
func (s *Store) LoggedIn() bool {
	token := s.Token()
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// Opaque tokens still count; only a parsed, expired JWT disqualifies.
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}

// SetUser caches the current-user record.
func (s *Store) SetUser(user m.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

// User returns the cached current-user record, if any.
func (s *Store) User() (m.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return m.User{}, false
	}
	return *s.user, true
}

// Clear logs the session out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}
