package kvstore

import (
	"context"

	"github.com/scorebookhq/scorebook/internal/logging"
)

// Store is the failure-isolated facade over a Repository. Local storage may
// be blocked by policy, out of quota, or simply broken; callers of this type
// must never have to care. Reads degrade to "absent", writes report the
// error for callers that want best-effort semantics with a warning.
type Store struct {
	repo Repository
	log  logging.Logger
}

func NewStore(repo Repository, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{repo: repo, log: log}
}

// Get returns the value for key, or ok=false when the key is absent or the
// underlying storage failed. Storage failures are logged, never propagated.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "settings read failed, treating as absent", "key", key, "err", err)
		return "", false
	}
	return value, ok
}

// Set writes key=value. The error is returned so callers deciding between
// best-effort and must-succeed writes can pick; best-effort callers log and
// move on.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, key, value)
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// DeletePrefix removes every key starting with prefix. Used to clear
// per-user UI flags on sign-out.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	return s.repo.DeletePrefix(ctx, prefix)
}
