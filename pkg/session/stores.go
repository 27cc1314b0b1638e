package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmcmoto/motoportal/pkg/cache"
	"github.com/vmcmoto/motoportal/pkg/crypt"
	"github.com/vmcmoto/motoportal/pkg/storage"
)

// FileStore keeps the session encrypted in one file on a storage disk.
type FileStore struct {
	disk storage.Disk
	path string
	box  *crypt.Box
}

func NewFileStore(disk storage.Disk, path string, box *crypt.Box) *FileStore {
	return &FileStore{disk: disk, path: path, box: box}
}

func (s *FileStore) Load(ctx context.Context) (State, error) {
	raw, err := s.disk.Get(ctx, s.path)
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, ErrNoSession
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := s.box.DecryptJSON(string(raw), &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *FileStore) Save(ctx context.Context, st State) error {
	enc, err := s.box.EncryptJSON(st)
	if err != nil {
		return err
	}
	return s.disk.Put(ctx, s.path, []byte(enc))
}

func (s *FileStore) Clear(ctx context.Context) error {
	err := s.disk.Delete(ctx, s.path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// CacheStore keeps the session encrypted under one cache key. Entries carry
// the session's remaining lifetime as TTL.
type CacheStore struct {
	store cache.Store
	key   string
	box   *crypt.Box
	now   func() time.Time
}

func NewCacheStore(store cache.Store, key string, box *crypt.Box) *CacheStore {
	return &CacheStore{store: store, key: key, box: box, now: time.Now}
}

func (s *CacheStore) Load(ctx context.Context) (State, error) {
	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, cache.ErrMiss) {
		return State{}, ErrNoSession
	}
	if err != nil {
		return State{}, err
	}
	var st State
	if err := s.box.DecryptJSON(string(raw), &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *CacheStore) Save(ctx context.Context, st State) error {
	var ttl time.Duration
	if !st.ExpiresAt.IsZero() {
		ttl = st.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return fmt.Errorf("session: token already expired at %s", st.ExpiresAt.Format(time.RFC3339))
		}
	}
	enc, err := s.box.EncryptJSON(st)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.key, []byte(enc), ttl)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx, s.key)
}
