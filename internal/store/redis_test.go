package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisGet(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("identities:user@example.com", `{"email":"user@example.com","leads":3}`)

	rec, found, err := s.Get(ctx, "identities", "user@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("document not found")
	}
	if rec.Key != "user@example.com" {
		t.Errorf("Key = %q", rec.Key)
	}
	if rec.Fields["email"] != "user@example.com" {
		t.Errorf("Fields = %v", rec.Fields)
	}
}

func TestRedisGetMiss(t *testing.T) {
	s, _ := setupTestRedis(t)

	rec, found, err := s.Get(context.Background(), "identities", "missing@example.com")
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if found {
		t.Errorf("found = true for missing key, rec = %+v", rec)
	}
}

func TestRedisGetNonObjectDocument(t *testing.T) {
	s, mr := setupTestRedis(t)

	mr.Set("identities:odd@example.com", "not-json")

	rec, found, err := s.Get(context.Background(), "identities", "odd@example.com")
	if err != nil || !found {
		t.Fatalf("Get = (%v, %v)", found, err)
	}
	if rec.Fields != nil {
		t.Errorf("non-object document should yield nil fields, got %v", rec.Fields)
	}
}

func TestRedisMergeCreatesDocument(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	err := s.Merge(ctx, "identities", "new@example.com", map[string]any{"email": "new@example.com"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	rec, found, err := s.Get(ctx, "identities", "new@example.com")
	if err != nil || !found {
		t.Fatalf("Get = (%v, %v)", found, err)
	}
	if rec.Fields["email"] != "new@example.com" {
		t.Errorf("Fields = %v", rec.Fields)
	}
	if !mr.Exists("identities:new@example.com") {
		t.Error("document key not written")
	}
}

func TestRedisMergePreservesExistingFields(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("identities:user@example.com", `{"email":"user@example.com","leads":3,"client_id":"c1"}`)

	err := s.Merge(ctx, "identities", "user@example.com", map[string]any{
		"leads":       float64(7),
		"email_valid": "valid",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	rec, _, err := s.Get(ctx, "identities", "user@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Fields["leads"] != float64(7) {
		t.Errorf("leads = %v, want overlaid 7", rec.Fields["leads"])
	}
	if rec.Fields["client_id"] != "c1" {
		t.Errorf("client_id = %v, want preserved c1", rec.Fields["client_id"])
	}
	if rec.Fields["email_valid"] != "valid" {
		t.Errorf("email_valid = %v", rec.Fields["email_valid"])
	}
}

func TestRedisMergeReplacesNonObjectDocument(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("identities:odd@example.com", "not-json")

	err := s.Merge(ctx, "identities", "odd@example.com", map[string]any{"email": "odd@example.com"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	rec, _, err := s.Get(ctx, "identities", "odd@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Fields["email"] != "odd@example.com" {
		t.Errorf("Fields = %v", rec.Fields)
	}
}

func TestRedisScan(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.Set("identities:a@x.com", `{"email":"a@x.com"}`)
	mr.Set("identities:b@x.com", `{"email":"b@x.com"}`)
	// A different collection must not leak into the scan.
	mr.Set("suppressed:c@x.com", `{"email":"c@x.com"}`)

	it, err := s.Scan(ctx, "identities")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer it.Close()

	got := map[string]bool{}
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got[rec.Key] = true
	}

	if len(got) != 2 || !got["a@x.com"] || !got["b@x.com"] {
		t.Errorf("scanned keys = %v", got)
	}
}

func TestRedisScanEarlyStop(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		mr.Set("identities:"+k, `{}`)
	}

	it, err := s.Scan(ctx, "identities")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// Consume one record, then abandon the iterator.
	if _, ok, err := it.Next(ctx); err != nil || !ok {
		t.Fatalf("Next = (%v, %v)", ok, err)
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
