package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each identity document as a JSON string under
// "<collection>:<key>". Scans ride the SCAN cursor, so consumers that
// stop early never touch the rest of the keyspace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func docKey(collection, key string) string {
	return collection + ":" + key
}

// Get fetches one document by identity key.
func (s *RedisStore) Get(ctx context.Context, collection, key string) (Record, bool, error) {
	val, err := s.client.Get(ctx, docKey(collection, key)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get %s: %w", collection, err)
	}
	return Record{Key: key, Fields: decodeDoc(val)}, true, nil
}

// Merge overlays fields onto the stored document, creating it when
// absent. The read-modify-write is not atomic; the import pipeline is
// the only writer, matching the original single-writer sync job.
func (s *RedisStore) Merge(ctx context.Context, collection, key string, fields map[string]any) error {
	full := docKey(collection, key)
	existing, err := s.client.Get(ctx, full).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis merge read %s: %w", collection, err)
	}

	doc := decodeDoc(existing)
	if doc == nil {
		doc = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis merge encode: %w", err)
	}
	if err := s.client.Set(ctx, full, data, 0).Err(); err != nil {
		return fmt.Errorf("redis merge write %s: %w", collection, err)
	}
	return nil
}

// Scan returns a lazy iterator over every document in the collection,
// in keyspace order as Redis produces it.
func (s *RedisStore) Scan(ctx context.Context, collection string) (Iterator, error) {
	prefix := collection + ":"
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	return &redisIterator{client: s.client, iter: iter, prefix: prefix}, nil
}

type redisIterator struct {
	client *redis.Client
	iter   *redis.ScanIterator
	prefix string
}

func (it *redisIterator) Next(ctx context.Context) (Record, bool, error) {
	for it.iter.Next(ctx) {
		full := it.iter.Val()
		val, err := it.client.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			// Key expired between SCAN and GET.
			continue
		}
		if err != nil {
			return Record{}, false, fmt.Errorf("redis scan get: %w", err)
		}
		key := strings.TrimPrefix(full, it.prefix)
		return Record{Key: key, Fields: decodeDoc(val)}, true, nil
	}
	if err := it.iter.Err(); err != nil {
		return Record{}, false, fmt.Errorf("redis scan: %w", err)
	}
	return Record{}, false, nil
}

func (it *redisIterator) Close() error { return nil }

// decodeDoc parses a stored document. Values that are not JSON objects
// come back as a nil field map rather than an error; the export job
// occasionally writes scalars and the normalizer absorbs them.
func decodeDoc(val string) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(val), &fields); err != nil {
		return nil
	}
	return fields
}
