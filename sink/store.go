package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists capture records. Implementations are safe for concurrent
// use.
type Store interface {
	Put(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns metadata of all records, newest first.
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func checkID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("sink: invalid capture id %q", id)
	}
	return nil
}

// FileStore keeps one CBOR file per record in a directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

const recordExt = ".cbor"

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Put writes r atomically, replacing any record with the same ID.
func (s *FileStore) Put(_ context.Context, r *Record) error {
	if err := checkID(r.ID); err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(r.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Get reads a record.
func (s *FileStore) Get(_ context.Context, id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	data, err := os.ReadFile(s.path(id))
	s.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	r, err := UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return r, nil
}

// List decodes every record in the directory.
func (s *FileStore) List(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}

	var metas []Meta
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		r, err := s.Get(ctx, strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		metas = append(metas, r.Meta)
	}
	sortNewest(metas)
	return metas, nil
}

// Delete removes a record.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// RedisStore keeps records in Redis: one key per record plus a sorted-set
// index scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig configures a [RedisStore].
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string
	// Prefix namespaces keys. Defaults to "screencapture:".
	Prefix string
	// TTL expires records. Zero keeps them forever.
	TTL time.Duration
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "screencapture:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) key(id string) string { return s.prefix + "capture:" + id }
func (s *RedisStore) index() string        { return s.prefix + "captures" }

// Put stores r and indexes it.
func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	if err := checkID(r.ID); err != nil {
		return err
	}
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(r.ID), data, s.ttl)
		pipe.ZAdd(ctx, s.index(), redis.Z{Score: float64(r.CreatedAt.UnixNano()), Member: r.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Get loads a record.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return UnmarshalRecord(data)
}

// List walks the index newest first. Index entries whose record expired
// are pruned.
func (s *RedisStore) List(ctx context.Context) ([]Meta, error) {
	ids, err := s.client.ZRevRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	metas := make([]Meta, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.client.ZRem(ctx, s.index(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		metas = append(metas, r.Meta)
	}
	return metas, nil
}

// Delete removes a record and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.index(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sortNewest(metas []Meta) {
	slices.SortFunc(metas, func(a, b Meta) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
