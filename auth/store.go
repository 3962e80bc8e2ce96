// Package auth is an in-memory credential store. Accounts live only as long as
// the process.
package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Store keeps bcrypt password hashes keyed by login name.
type Store struct {
	users map[string][]byte
	cost  int
	sync.RWMutex
}

// NewStore creates a store seeded with name -> password accounts.
func NewStore(seed map[string]string) (*Store, error) {
	s := &Store{
		users: make(map[string][]byte),
		cost:  bcrypt.DefaultCost,
	}
	for name, password := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, err
		}
		s.users[name] = hash
	}
	return s, nil
}

// Authenticate reports whether name exists and password matches.
func (s *Store) Authenticate(name, password string) bool {
	s.RLock()
	hash, ok := s.users[name]
	s.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// Register creates an account. It returns false if the name is already taken.
func (s *Store) Register(name, password string) bool {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false
	}

	s.Lock()
	defer s.Unlock()
	if _, exists := s.users[name]; exists {
		return false
	}
	s.users[name] = hash
	return true
}
