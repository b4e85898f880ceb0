// Package session persists the authenticated state as three independent
// keys in a durable key/value Storage: the logged-in flag, the user's
// username hash and the role.
package session

import (
	"context"

	"sitegate/models"
)

const (
	KeyLoggedIn = "loggedIn"
	KeyUserHash = "currentUserHash"
	KeyRole     = "currentUserRole"
)

type Store struct {
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Set replaces the session with sess. The previous keys are removed first
// and the role is written last, so a failure part way leaves a session Get
// reports as absent rather than a mix of the old and new users.
func (s *Store) Set(ctx context.Context, sess models.Session) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	loggedIn := "false"
	if sess.LoggedIn {
		loggedIn = "true"
	}
	if err := s.storage.Set(ctx, KeyLoggedIn, loggedIn); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyUserHash, sess.UserHash); err != nil {
		return err
	}
	return s.storage.Set(ctx, KeyRole, sess.Role)
}

// Clear removes all three keys. Clearing an empty session is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{KeyLoggedIn, KeyUserHash, KeyRole} {
		if err := s.storage.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Get reads the session. ok is false when the user hash or the role is
// missing or empty, whatever the logged-in flag says.
func (s *Store) Get(ctx context.Context) (sess models.Session, ok bool, err error) {
	hash, hasHash, err := s.storage.Get(ctx, KeyUserHash)
	if err != nil {
		return models.Session{}, false, err
	}
	role, hasRole, err := s.storage.Get(ctx, KeyRole)
	if err != nil {
		return models.Session{}, false, err
	}
	if !hasHash || !hasRole || hash == "" || role == "" {
		return models.Session{}, false, nil
	}

	loggedIn, _, err := s.storage.Get(ctx, KeyLoggedIn)
	if err != nil {
		return models.Session{}, false, err
	}
	return models.Session{LoggedIn: loggedIn == "true", UserHash: hash, Role: role}, true, nil
}

// LoggedIn reports whether a complete session with the logged-in flag set
// exists. Storage errors count as logged out.
func (s *Store) LoggedIn(ctx context.Context) bool {
	sess, ok, err := s.Get(ctx)
	return err == nil && ok && sess.LoggedIn
}

// HasRole reports whether the current session carries role.
func (s *Store) HasRole(ctx context.Context, role string) bool {
	sess, ok, err := s.Get(ctx)
	return err == nil && ok && sess.Role == role
}
