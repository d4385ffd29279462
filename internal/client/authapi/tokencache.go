package authapi

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// TokenCache persists the refresh token between process starts so a session
// can be restored without re-entering credentials. It lives with the auth
// service, not in the app's key-value settings, which by contract never hold
// tokens.
type TokenCache interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenCache stores the refresh token in a single 0600 file.
type FileTokenCache struct {
	Path string
}

func (c *FileTokenCache) Load() (string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *FileTokenCache) Save(token string) error {
	return os.WriteFile(c.Path, []byte(token), 0o600)
}

func (c *FileTokenCache) Clear() error {
	err := os.Remove(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryTokenCache is a TokenCache for tests.
type MemoryTokenCache struct {
	mu    sync.Mutex
	token string
}

func (c *MemoryTokenCache) Load() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *MemoryTokenCache) Save(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

func (c *MemoryTokenCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	return nil
}
