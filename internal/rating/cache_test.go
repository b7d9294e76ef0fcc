package rating

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/uvgride/grouprides/internal/domain"
)

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := ConnectRedis(ctx, addr, os.Getenv("REDIS_TEST_PASSWORD"))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	const driverID = 987654321
	client.Del(ctx, summaryKey(driverID))
	cache := NewRedisCache(client, time.Minute)

	if _, ok, err := cache.Get(ctx, driverID); err != nil || ok {
		t.Fatalf("empty get: ok=%v err=%v", ok, err)
	}

	want := domain.NewRatingSummary(driverID, 3, 4.333333)
	if err := cache.Set(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get(ctx, driverID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Count != 3 || got.Average == nil || *got.Average != 4.33 {
		t.Fatalf("got = %+v", got)
	}
	if ttl := client.TTL(ctx, summaryKey(driverID)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}

	if err := cache.Delete(ctx, driverID); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := cache.Get(ctx, driverID); err != nil || ok {
		t.Fatalf("get after delete: ok=%v err=%v", ok, err)
	}
}

func TestNopCache(t *testing.T) {
	var c NopCache
	if err := c.Set(context.Background(), domain.RatingSummary{DriverID: 1, Count: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(context.Background(), 1); ok {
		t.Fatal("nop cache returned a hit")
	}
}
