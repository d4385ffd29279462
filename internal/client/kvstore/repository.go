// Package kvstore implements the on-device key-value storage used for the
// storage-mode override, the cached identity record and small per-user UI
// flags. It deliberately holds no tokens and no entity data; the main app
// database is a separate concern.
package kvstore

import "context"

// Repository is the raw storage contract. Implementations report real
// errors; the failure-isolating Store facade below is what most callers use.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
