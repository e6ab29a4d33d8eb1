package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

var (
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

const minPasswordLength = 6

// Service exchanges credentials for identities. Passwords are hashed with
// bcrypt before they are held anywhere; cleartext never leaves the call.
type Service struct {
	mu    sync.RWMutex
	users map[string]core.User
}

func NewService() *Service {
	return &Service{users: make(map[string]core.User)}
}

// Register hashes the password and records the identity keyed by email.
func (s *Service) Register(ctx context.Context, user core.User, password string) (core.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}
	if len(password) < minPasswordLength {
		return core.User{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, err
	}
	user.PasswordHash = string(hash)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return core.User{}, ErrUserExists
	}
	s.users[user.Email] = user

	return user, nil
}

// Authenticate verifies the password against the stored hash. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	user, exists := s.users[email]
	s.mu.RUnlock()
	if !exists {
		return core.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}

	return user, nil
}
