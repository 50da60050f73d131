// Package redis stores documents as JSON strings in Redis.
//
// Each document lives at doc:{path}; each collection keeps a set of child ids
// at col:{collectionPath} so List needs no key scan. written:{path} holds the
// unix nano stamp of the last write or delete, kept after a delete.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"novoape/internal/docstore"
)

const (
	defaultPrefix = "novoape"
	mergeRetries  = 5
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type Store struct {
	client *redis.Client
	prefix string
}

// New wraps client. An empty prefix uses "novoape".
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) docKey(p docstore.Path) string { return s.prefix + ":doc:" + p.String() }
func (s *Store) colKey(p docstore.Path) string { return s.prefix + ":col:" + p.String() }
func (s *Store) writtenKey(p docstore.Path) string {
	return s.prefix + ":written:" + p.String()
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) Set(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	if err := docstore.ValidBody(body); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.docKey(path), body, 0)
		p.SAdd(ctx, s.colKey(path.Parent()), path.ID())
		p.Set(ctx, s.writtenKey(path), docstore.WriteTime(ctx).UnixNano(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", path, err)
	}
	return nil
}

// Merge retries on concurrent modification of the watched key.
func (s *Store) Merge(ctx context.Context, path docstore.Path, body []byte) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	key := s.docKey(path)
	txf := func(tx *redis.Tx) error {
		existing, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		merged, err := docstore.MergeBodies(existing, body)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, merged, 0)
			p.SAdd(ctx, s.colKey(path.Parent()), path.ID())
			p.Set(ctx, s.writtenKey(path), docstore.WriteTime(ctx).UnixNano(), 0)
			return nil
		})
		return err
	}
	for i := 0; i < mergeRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis merge %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("redis merge %s: too much contention", path)
}

func (s *Store) Delete(ctx context.Context, path docstore.Path) error {
	if err := path.Validate(true); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.docKey(path))
		p.SRem(ctx, s.colKey(path.Parent()), path.ID())
		p.Set(ctx, s.writtenKey(path), docstore.WriteTime(ctx).UnixNano(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path docstore.Path) ([]byte, error) {
	if err := path.Validate(true); err != nil {
		return nil, err
	}
	body, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", path, err)
	}
	return body, nil
}

func (s *Store) WrittenAt(ctx context.Context, path docstore.Path) (time.Time, error) {
	if err := path.Validate(true); err != nil {
		return time.Time{}, err
	}
	ns, err := s.client.Get(ctx, s.writtenKey(path)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis written at %s: %w", path, err)
	}
	return time.Unix(0, ns).UTC(), nil
}

// List skips ids whose document has vanished since the index was read.
func (s *Store) List(ctx context.Context, collection docstore.Path) ([]docstore.Doc, error) {
	if err := collection.Validate(false); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.colKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection + docstore.Path("/"+id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %s: %w", collection, err)
	}
	out := make([]docstore.Doc, 0, len(ids))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, docstore.Doc{ID: ids[i], Body: []byte(str)})
	}
	return out, nil
}
