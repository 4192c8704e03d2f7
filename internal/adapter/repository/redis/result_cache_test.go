package redis

import (
	"context"
	"testing"
	"time"
)

func TestResultCache_GetSet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewResultCache(client)
	ctx := context.Background()

	// Miss returns nil without error.
	value, err := cache.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil on miss, got %q", value)
	}

	if err := cache.Set(ctx, "checksum-1", []byte(`{"status":"success"}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, err = cache.Get(ctx, "checksum-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(value) != `{"status":"success"}` {
		t.Fatalf("unexpected value: %q", value)
	}

	// Keys are namespaced.
	if !mr.Exists("result:checksum-1") {
		t.Fatal("expected namespaced key in redis")
	}
}

func TestResultCache_TTL(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewResultCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "checksum-2", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	value, err := cache.Get(ctx, "checksum-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != nil {
		t.Fatalf("expected expired key to miss, got %q", value)
	}
}
