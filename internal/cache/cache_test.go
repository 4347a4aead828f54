package cache

import (
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New[string](1 * time.Second)
	defer c.Close()

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	if !found {
		t.Error("Expected to find key1")
	}
	if val != "value1" {
		t.Errorf("Expected value1, got %v", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New[[]byte](time.Minute)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("key1", []byte("value1"))

	// Should exist immediately
	if _, found := c.Get("key1"); !found {
		t.Error("Expected to find key1 immediately")
	}

	now = now.Add(2 * time.Minute)

	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be dropped, got %d entries", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string](1 * time.Second)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, found := c.Get("key1"); found {
		t.Error("Expected key1 to be deleted")
	}
}

func TestCache_Purge(t *testing.T) {
	c := New[int](1 * time.Second)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after purge, got %d", c.Len())
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	now = now.Add(time.Hour)
	c.sweep()

	if c.Len() != 0 {
		t.Errorf("Expected sweep to drop expired entries, got %d", c.Len())
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := New[int](time.Second)
	c.Close()
	c.Close()
}
