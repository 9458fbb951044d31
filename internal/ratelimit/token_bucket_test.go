package ratelimit

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisTokenBucketValidates(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if _, err := NewRedisTokenBucket(nil, 10, time.Minute, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisTokenBucket(client, 0, time.Minute, ""); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, err := NewRedisTokenBucket(client, 10, 0, ""); err == nil {
		t.Fatal("expected error for zero window")
	}

	l, err := NewRedisTokenBucket(client, 10, time.Minute, "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.key(""); got != "imagehelper:ratelimit:anonymous" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision([]any{int64(0), int64(3), int64(1500)})
	if err != nil {
		t.Fatalf("parse decision: %v", err)
	}
	if d.Allowed || d.Remaining != 3 || d.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("unexpected decision %+v", d)
	}

	if _, err := parseDecision([]any{int64(1)}); err == nil {
		t.Fatal("expected error for short response")
	}
	if _, err := parseDecision([]any{int64(1), true, int64(0)}); err == nil {
		t.Fatal("expected error for non-numeric field")
	}
}
