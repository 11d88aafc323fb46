package tokenstore

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/dbx"
)

// SQLiteStore persists the credential in the metadata table under
// common.AccessTokenStorageKey. After the first successful read the value
// is served from memory, so steady-state Get calls never touch the disk.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	loaded bool
	value  string
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.value, nil
	}

	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.AccessTokenStorageKey)
	if err != nil {
		return "", err
	}

	s.value = string(v)
	s.loaded = true
	return s.value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if credential == "" {
			if err := repo.Delete(ctx, common.AccessTokenStorageKey); err != nil {
				return err
			}
			return repo.Delete(ctx, common.TokenSavedAtStorageKey)
		}

		if err := repo.Set(ctx, common.AccessTokenStorageKey, []byte(credential)); err != nil {
			return err
		}
		savedAt := strconv.FormatInt(s.now().UTC().Unix(), 10)
		return repo.Set(ctx, common.TokenSavedAtStorageKey, []byte(savedAt))
	})
	if err != nil {
		return err
	}

	s.value = credential
	s.loaded = true
	return nil
}

// SavedAt reports when the current credential was written. ok is false
// when no credential is stored.
func (s *SQLiteStore) SavedAt(ctx context.Context) (t time.Time, ok bool, err error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.TokenSavedAtStorageKey)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}

	sec, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0).UTC(), true, nil
}
