package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pathshala/internal/platform/cache"
	"github.com/p-n-ai/pathshala/internal/platform/cache/cachetest"
)

func TestCache_JSONRoundTrip(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	key := cache.Key("test", "payload")

	var got payload
	if err := c.GetJSON(ctx, key, &got); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("GetJSON() on empty key error = %v, want ErrMiss", err)
	}

	if err := c.SetJSON(ctx, key, payload{Name: "পাঠ", Count: 3}, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if err := c.GetJSON(ctx, key, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.Name != "পাঠ" || got.Count != 3 {
		t.Errorf("GetJSON() = %+v, want {পাঠ 3}", got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.GetJSON(ctx, key, &got); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("GetJSON() after Delete error = %v, want ErrMiss", err)
	}
	if err := c.Delete(ctx); err != nil {
		t.Errorf("Delete() with no keys error = %v", err)
	}
}
