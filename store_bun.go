package session

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// sessionRecord is one logical storage entry. The table is a plain
// key-value pair set so the layout matches the two namespaced entries the
// client has always persisted.
type sessionRecord struct {
	bun.BaseModel `bun:"table:session_records,alias:sr"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunStore is the durable Store: sessions written here survive process
// restarts. It keeps exactly two rows, the versioned user record and the
// token string, under namespaced keys.
type BunStore struct {
	db       *bun.DB
	userKey  string
	tokenKey string
	logger   Logger
}

var _ Store = (*BunStore)(nil)

// BunStoreOption customizes BunStore construction.
type BunStoreOption func(*BunStore)

// WithStoreLogger overrides the store's logger.
func WithStoreLogger(logger Logger) BunStoreOption {
	return func(s *BunStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunStore wraps an existing bun DB. The session_records table is
// created on first use via EnsureSchema.
func NewBunStore(db *bun.DB, namespace string, opts ...BunStoreOption) *BunStore {
	userKey, tokenKey := storageKeys(namespace)
	s := &BunStore{
		db:       db,
		userKey:  userKey,
		tokenKey: tokenKey,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// OpenBunStore opens (or creates) a sqlite-backed store at path. Use
// ":memory:" for a throwaway database.
func OpenBunStore(ctx context.Context, path, namespace string, opts ...BunStoreOption) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open session database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store := NewBunStore(db, namespace, opts...)

	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// EnsureSchema creates the session_records table if missing.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session_records table")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}

// Save upserts both entries in one transaction so a crash cannot leave a
// user without a token or vice versa.
func (s *BunStore) Save(ctx context.Context, user *User, token string) error {
	record, err := encodeRecord(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize session record")
	}

	now := time.Now()
	rows := []sessionRecord{
		{Key: s.userKey, Value: record, UpdatedAt: now},
		{Key: s.tokenKey, Value: token, UpdatedAt: now},
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session")
	}

	return nil
}

// Load returns the persisted pair, or (nil, "", nil) when nothing usable is
// stored. Malformed rows read as nothing found; the caller decides whether
// to wipe.
func (s *BunStore) Load(ctx context.Context) (*User, string, error) {
	var rows []sessionRecord
	err := s.db.NewSelect().
		Model(&rows).
		Where("key IN (?, ?)", s.userKey, s.tokenKey).
		Scan(ctx)
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read persisted session")
	}

	var record, token string
	for _, row := range rows {
		switch row.Key {
		case s.userKey:
			record = row.Value
		case s.tokenKey:
			token = row.Value
		}
	}

	if record == "" || token == "" {
		return nil, "", nil
	}

	user := decodeRecord(record)
	if user == nil {
		s.logger.Warn("persisted session record is malformed, treating as empty")
		return nil, "", nil
	}

	return user, token, nil
}

// Clear removes both entries. Safe to call when nothing is stored.
func (s *BunStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("key IN (?, ?)", s.userKey, s.tokenKey).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear persisted session")
	}
	return nil
}
