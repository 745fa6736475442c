package redisadapter

import (
	"context"
	"testing"
	"time"

	"societyhub/contexts/identity-access/membership-service/domain/entities"
)

// TestCacheIntegration requires a running Redis and skips otherwise.
func TestCacheIntegration(t *testing.T) {
	client := NewClient("localhost:6379", "", 0)
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	cache := NewCache(client, "membership-test")
	key := entities.MembershipKey{SocietyID: "society-1", UserID: "member-1"}
	t.Cleanup(func() { _ = cache.Invalidate(ctx, key) })

	if _, hit, err := cache.Get(ctx, key, time.Now()); err != nil || hit {
		t.Fatalf("expected cold cache, hit=%v err=%v", hit, err)
	}
	if err := cache.Set(ctx, key, true, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("set: %v", err)
	}
	active, hit, err := cache.Get(ctx, key, time.Now())
	if err != nil || !hit || !active {
		t.Fatalf("expected cached active answer, active=%v hit=%v err=%v", active, hit, err)
	}
	if err := cache.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, hit, _ := cache.Get(ctx, key, time.Now()); hit {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestCacheKeyNormalizesIdentifiers(t *testing.T) {
	cache := NewCache(nil, "")
	got := cache.key(entities.MembershipKey{SocietyID: " society-1 ", UserID: "member-1 "})
	if got != "membership:society-1:member-1" {
		t.Fatalf("unexpected key %q", got)
	}
}
