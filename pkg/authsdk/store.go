package authsdk

import (
	"context"
	"sync"
)

// CredentialStore is synchronous key/value storage for session credentials.
// Implementations must be safe for concurrent use. Entries never expire on
// their own; expiry is signalled by the remote API answering 401.
type CredentialStore interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// StoreKeys names the entries a Session keeps in its CredentialStore.
type StoreKeys struct {
	AccessToken  string
	RefreshToken string
	User         string
}

// DefaultStoreKeys returns the entry names used by the web client.
func DefaultStoreKeys() StoreKeys {
	return StoreKeys{
		AccessToken:  "access_token",
		RefreshToken: "refresh_token",
		User:         "user",
	}
}

func (k StoreKeys) all() []string {
	return []string{k.AccessToken, k.RefreshToken, k.User}
}

// MemoryStore is a process-local CredentialStore. Its contents are lost when
// the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
