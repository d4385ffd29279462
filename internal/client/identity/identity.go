// Package identity persists the last confirmed signed-in identity (id and
// email only, never tokens) so the app can keep showing who the user is when
// the backend cannot be reached. It exists purely to support the auth grace
// period and must never be the sole basis for "authenticated" in normal
// operation.
package identity

import (
	"context"
	"encoding/json"

	"github.com/scorebookhq/scorebook/internal/client/kvstore"
	"github.com/scorebookhq/scorebook/internal/logging"
)

const storageKey = "cached_identity"

// CachedIdentity is the minimal continuity record for the offline grace
// period.
type CachedIdentity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Store reads and writes the cached identity through the failure-isolated
// key-value store.
type Store struct {
	kv  *kvstore.Store
	log logging.Logger
}

func NewStore(kv *kvstore.Store, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{kv: kv, log: log}
}

// Get returns the cached identity, or nil when none is stored, the record is
// malformed, or storage is unavailable. It never returns an error: an
// unreadable cache is the same as an empty one.
func (s *Store) Get(ctx context.Context) *CachedIdentity {
	raw, ok := s.kv.Get(ctx, storageKey)
	if !ok {
		return nil
	}

	var id CachedIdentity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		s.log.Warn(ctx, "cached identity is malformed, ignoring", "err", err)
		return nil
	}
	if id.UserID == "" {
		return nil
	}
	return &id
}

// Set records the identity. Called only when a real session has been
// confirmed; failures are logged and swallowed since the cache is an
// opportunistic aid, not a source of truth.
func (s *Store) Set(ctx context.Context, id CachedIdentity) {
	raw, err := json.Marshal(id)
	if err != nil {
		s.log.Warn(ctx, "cached identity marshal failed", "err", err)
		return
	}
	if err := s.kv.Set(ctx, storageKey, string(raw)); err != nil {
		s.log.Warn(ctx, "cached identity write failed", "err", err)
	}
}

// Clear removes the cached identity, e.g. after account deletion.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, storageKey); err != nil {
		s.log.Warn(ctx, "cached identity delete failed", "err", err)
	}
}
