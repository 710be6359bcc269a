package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	b, err := NewRedis(Config{
		Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(ctx) })

	exerciseBackend(t, b)

	if err := b.Set(ctx, "auth_user", "u"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if !mr.Exists("test:auth_user") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL("test:auth_user"); ttl != 0 {
		t.Fatalf("expected no ttl without config, got %s", ttl)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	b, err := NewRedis(Config{
		TTL:   time.Minute,
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(ctx) })

	if err := b.Set(ctx, "auth_token", "t"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := b.Get(ctx, "auth_token"); ok {
		t.Fatalf("expected key to expire")
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatalf("expected error without redis config")
	}
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatalf("expected error without address")
	}
}
