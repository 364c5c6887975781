// Package identity holds registered users and active bearer tokens.
// The core consumes only ResolveToken and CollateralLimit from it
// (spec §4.2); registration, login, and password change are the thin
// external collaborators spec.md §1 keeps out of the core's scope, but
// a running server still needs them.
package identity

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"energyexchange/internal/apperr"
)

// Limit is a user's collateral limit: either a non-negative bound or
// the "unlimited" sentinel (spec §3).
type Limit struct {
	Unlimited bool
	Value     int64
}

func Unlimited() Limit         { return Limit{Unlimited: true} }
func Bounded(v int64) Limit    { return Limit{Value: v} }

type user struct {
	username     string
	passwordHash []byte
	generation   uint64 // bumped on password change, invalidates old tokens
	collateral   Limit
}

type tokenRecord struct {
	username   string
	generation uint64
}

// Service is the composition root's single identity store.
type Service struct {
	mu     sync.RWMutex
	users  map[string]*user
	tokens map[string]tokenRecord
}

func New() *Service {
	return &Service{
		users:  make(map[string]*user),
		tokens: make(map[string]tokenRecord),
	}
}

func (s *Service) Register(username, password string) error {
	if username == "" || password == "" {
		return apperr.New(apperr.InvalidInput, "username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return apperr.New(apperr.Conflict, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.users[username] = &user{
		username:     username,
		passwordHash: hash,
		collateral:   Unlimited(),
	}
	return nil
}

// Login issues a fresh bearer token on a matching password.
func (s *Service) Login(username, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return "", apperr.New(apperr.Unauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return "", apperr.New(apperr.Unauthorized, "invalid credentials")
	}

	token := uuid.NewString()
	s.tokens[token] = tokenRecord{username: username, generation: u.generation}
	return token, nil
}

// ChangePassword invalidates every token issued before the change by
// bumping the user's generation counter — resolution checks the
// generation lazily, so no token enumeration is needed (spec §8
// property 10).
func (s *Service) ChangePassword(username, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return apperr.New(apperr.Unauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(oldPassword)) != nil {
		return apperr.New(apperr.Unauthorized, "invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.passwordHash = hash
	u.generation++
	return nil
}

// ResolveToken is an O(1) lookup with no suspension semantics: an
// unknown or stale token is simply absence (spec §4.2).
func (s *Service) ResolveToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	u, ok := s.users[rec.username]
	if !ok || u.generation != rec.generation {
		return "", false
	}
	return rec.username, true
}

func (s *Service) CollateralLimit(username string) Limit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return Unlimited()
	}
	return u.collateral
}

// SetCollateral takes effect immediately for subsequent admissions; it
// never cancels already-resting orders (spec §4.2).
func (s *Service) SetCollateral(username string, limit Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return apperr.New(apperr.NotFound, "unknown user")
	}
	u.collateral = limit
	return nil
}

func (s *Service) UserExists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}
