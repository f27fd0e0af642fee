package session

import (
	"context"
	"encoding/json"
	"sync"
)

// Storage keys of the original dashboard client, kept wire-compatible so a
// migrated deployment can read sessions written by the previous version.
const (
	// DefaultStorageNamespace prefixes both entries.
	DefaultStorageNamespace = "fiap_fintech"

	userKeySuffix  = "_current_user"
	tokenKeySuffix = "_token"
)

func storageKeys(namespace string) (userKey, tokenKey string) {
	if namespace == "" {
		namespace = DefaultStorageNamespace
	}
	return namespace + userKeySuffix, namespace + tokenKeySuffix
}

// encodeRecord wraps the user in the versioned envelope.
func encodeRecord(user *User) (string, error) {
	raw, err := json.Marshal(PersistedRecord{
		Version: persistedRecordVersion,
		User:    user,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeRecord fails closed: any schema or version mismatch decodes to nil.
func decodeRecord(raw string) *User {
	record := PersistedRecord{}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil
	}
	if record.Version != persistedRecordVersion || record.User == nil || record.User.ID == 0 {
		return nil
	}
	return record.User
}

// MemoryStore is an in-process Store. Sessions do not survive a restart;
// it backs tests and ephemeral tooling. Use BunStore for durability.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	userKey  string
	tokenKey string
	logger   Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore under the given namespace.
func NewMemoryStore(namespace string, logger Logger) *MemoryStore {
	if logger == nil {
		logger = defLogger{}
	}
	userKey, tokenKey := storageKeys(namespace)
	return &MemoryStore{
		values:   map[string]string{},
		userKey:  userKey,
		tokenKey: tokenKey,
		logger:   logger,
	}
}

func (s *MemoryStore) Save(ctx context.Context, user *User, token string) error {
	record, err := encodeRecord(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.userKey] = record
	s.values[s.tokenKey] = token
	return nil
}

// Load returns the persisted pair, or (nil, "", nil) when nothing usable is
// stored. Malformed data reads as nothing found.
func (s *MemoryStore) Load(ctx context.Context) (*User, string, error) {
	s.mu.Lock()
	record, okUser := s.values[s.userKey]
	token, okToken := s.values[s.tokenKey]
	s.mu.Unlock()

	if !okUser || !okToken || token == "" {
		return nil, "", nil
	}

	user := decodeRecord(record)
	if user == nil {
		s.logger.Warn("memory store holds malformed session record, treating as empty")
		return nil, "", nil
	}

	return user, token, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, s.userKey)
	delete(s.values, s.tokenKey)
	return nil
}

// Seed writes raw values under the store's keys, bypassing the record
// envelope. Test helper for corrupt and legacy layouts.
func (s *MemoryStore) Seed(userRaw, tokenRaw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userRaw != "" {
		s.values[s.userKey] = userRaw
	}
	if tokenRaw != "" {
		s.values[s.tokenKey] = tokenRaw
	}
}
