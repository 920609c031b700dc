package client

import (
	"testing"
	"time"
)

func TestCacheHitWithinTTL(t *testing.T) {
	c := NewCache()
	c.Set("GET /v1/companies/42", []byte(`{"id":42}`))

	got, ok := c.Get("GET /v1/companies/42", time.Minute)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != `{"id":42}` {
		t.Fatalf("unexpected cached value: %s", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Set("k", []byte("v"))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k", time.Minute); ok {
		t.Fatal("expected expired entry to miss")
	}
	// Expired entries are evicted on read.
	c.now = func() time.Time { return base }
	if _, ok := c.Get("k", time.Hour); ok {
		t.Fatal("expected evicted entry to stay gone")
	}
}

func TestCacheZeroTTLBypasses(t *testing.T) {
	c := NewCache()
	c.Set("k", []byte("v"))
	if _, ok := c.Get("k", 0); ok {
		t.Fatal("zero ttl must bypass the cache")
	}
}

func TestCacheInvalidateAndPurge(t *testing.T) {
	c := NewCache()
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Invalidate("a")
	if _, ok := c.Get("a", time.Minute); ok {
		t.Fatal("expected invalidated key to miss")
	}
	if _, ok := c.Get("b", time.Minute); !ok {
		t.Fatal("expected untouched key to hit")
	}

	c.Purge()
	if _, ok := c.Get("b", time.Minute); ok {
		t.Fatal("expected purge to clear everything")
	}
}
