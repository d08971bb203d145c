package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuildKeyBindsFileIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.wav")
	if err := os.WriteFile(path, []byte("aaaa"), 0644); err != nil {
		t.Fatal(err)
	}

	key1, err := buildKey(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(key1, "loudgate:metrics:") {
		t.Errorf("unexpected key prefix: %s", key1)
	}

	key2, err := buildKey(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key1 != key2 {
		t.Error("key must be stable for an unchanged file")
	}

	// Mutating the file must produce a different key.
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("aaaabb"), 0644); err != nil {
		t.Fatal(err)
	}
	key3, err := buildKey(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key3 == key1 {
		t.Error("key must change when the file changes")
	}
}

func TestBuildKeyMissingFile(t *testing.T) {
	if _, err := buildKey(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNilCacheDegradesToMiss(t *testing.T) {
	var c *MetricsCache
	if _, ok := c.Get(context.Background(), "x"); ok {
		t.Error("nil cache must report a miss")
	}
}
