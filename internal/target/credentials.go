package target

import (
	"context"
	"fmt"
	"sync"

	"github.com/iscsid/negotiator/internal/iscsi"
	"github.com/iscsid/negotiator/pkg/config"
)

// StaticCredentialStore resolves CHAP credentials from a fixed, in-memory
// table. Grounded on the teacher's identity.LocalAuthProvider: a single
// lookup method backed by a map, guarded for concurrent reads, returning a
// distinct not-found error rather than the original C stub's behavior of
// echoing the username back as its own secret (spec §9 design note).
type StaticCredentialStore struct {
	mu    sync.RWMutex
	users map[string]string // username -> shared secret
}

// NewStaticCredentialStore builds a store from the given users.
func NewStaticCredentialStore(users []config.StaticUser) *StaticCredentialStore {
	s := &StaticCredentialStore{users: make(map[string]string, len(users))}
	for _, u := range users {
		s.users[u.Username] = u.SharedSecret
	}
	return s
}

// Lookup implements iscsi.CredentialLookup. authType does not affect the
// lookup (this store only ever holds CHAP shared secrets); it is copied
// into the returned Credential.
func (s *StaticCredentialStore) Lookup(_ context.Context, user, authType string) (iscsi.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.users[user]
	if !ok {
		return iscsi.Credential{}, fmt.Errorf("%w: %q", iscsi.ErrCredentialNotFound, user)
	}
	return iscsi.Credential{User: user, AuthType: authType, SharedSecret: secret}, nil
}

// Put adds or replaces a user's shared secret.
func (s *StaticCredentialStore) Put(username, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = secret
}
