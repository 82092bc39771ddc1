package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/acsense/internal/embedding"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func result(text string) embedding.Result {
	return embedding.Result{Text: text, Vector: []float32{1, 2, 3}, Model: "m1"}
}

func TestKey(t *testing.T) {
	k := Key("click save", "m1")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("click save", "m1"))
	assert.NotEqual(t, k, Key("click save", "m2"), "model is part of the key")
}

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir)

	c.Set(result("click save"), 0)

	got, ok := c.Get("click save", "m1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got.Vector)
	assert.Equal(t, 3, got.Dimensions)

	_, ok = c.Get("click save", "m2")
	assert.False(t, ok, "different model misses")

	assert.FileExists(t, filepath.Join(dir, "embedding_index.json"))
	assert.FileExists(t, filepath.Join(dir, Key("click save", "m1")[:32]+".json"))
}

func TestEmbeddingCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewEmbeddingCache(t.TempDir(), WithClock(clock.Now))

	c.Set(result("hide panel"), time.Hour)
	clock.Advance(59 * time.Minute)
	_, ok := c.Get("hide panel", "m1")
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("hide panel", "m1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is purged")
}

func TestEmbeddingCache_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewEmbeddingCache(t.TempDir(), WithClock(clock.Now))

	c.Set(result("hide panel"), 0)
	clock.Advance(29 * 24 * time.Hour)
	_, ok := c.Get("hide panel", "m1")
	assert.True(t, ok)

	clock.Advance(2 * 24 * time.Hour)
	_, ok = c.Get("hide panel", "m1")
	assert.False(t, ok)
}

func TestEmbeddingCache_EvictsOldest(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()
	c := NewEmbeddingCache(dir, WithClock(clock.Now), WithMaxEntries(2))

	c.Set(result("a"), 0)
	clock.Advance(time.Second)
	c.Set(result("b"), 0)
	clock.Advance(time.Second)
	c.Set(result("c"), 0)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a", "m1")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get("b", "m1")
	assert.True(t, ok)
	_, ok = c.Get("c", "m1")
	assert.True(t, ok)

	_, err := os.Stat(filepath.Join(dir, Key("a", "m1")[:32]+".json"))
	assert.True(t, os.IsNotExist(err), "evicted entry file removed")
}

func TestEmbeddingCache_ReplaceDoesNotEvict(t *testing.T) {
	c := NewEmbeddingCache(t.TempDir(), WithMaxEntries(2))

	c.Set(result("a"), 0)
	c.Set(result("b"), 0)
	updated := result("a")
	updated.Vector = []float32{9, 9, 9}
	c.Set(updated, 0)

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a", "m1")
	require.True(t, ok)
	assert.Equal(t, []float32{9, 9, 9}, got.Vector)
	_, ok = c.Get("b", "m1")
	assert.True(t, ok)
}

func TestEmbeddingCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir)
	c.Set(result("click save"), 0)

	path := filepath.Join(dir, Key("click save", "m1")[:32]+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, ok := c.Get("click save", "m1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEmbeddingCache_MissingEntryFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir)
	c.Set(result("click save"), 0)

	require.NoError(t, os.Remove(filepath.Join(dir, Key("click save", "m1")[:32]+".json")))

	_, ok := c.Get("click save", "m1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEmbeddingCache_Reload(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir)
	c.Set(result("click save"), 0)

	reopened := NewEmbeddingCache(dir)
	assert.Equal(t, 1, reopened.Len())
	got, ok := reopened.Get("click save", "m1")
	require.True(t, ok)
	assert.Equal(t, "click save", got.Text)
}

func TestEmbeddingCache_CorruptIndexStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embedding_index.json"), []byte("]]"), 0644))

	core, logs := observer.New(zap.WarnLevel)
	c := NewEmbeddingCache(dir, WithLogger(zap.New(core)))

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, logs.FilterMessage("embedding cache index unreadable, starting empty").Len())
}

func TestEmbeddingCache_Stats(t *testing.T) {
	c := NewEmbeddingCache(t.TempDir(), WithMaxEntries(10))
	c.Set(result("a"), 0)

	_, _ = c.Get("a", "m1")
	_, _ = c.Get("a", "m1")
	_, _ = c.Get("b", "m1")

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 10, s.MaxEntries)
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
}

func TestEmbeddingCache_Batch(t *testing.T) {
	c := NewEmbeddingCache(t.TempDir())
	c.SetBatch([]embedding.Result{result("a"), result("b")}, 0)

	hits, misses := c.GetBatch([]string{"a", "x", "b", "y"}, "m1")
	assert.Len(t, hits, 2)
	assert.Equal(t, []string{"x", "y"}, misses)
}

func TestEmbeddingCache_Clear(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir)
	c.Set(result("a"), 0)

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEmbeddingCache_IgnoresEmpty(t *testing.T) {
	c := NewEmbeddingCache(t.TempDir())
	c.Set(embedding.Result{Text: "  ", Vector: []float32{1}}, 0)
	c.Set(embedding.Result{Text: "a"}, 0)
	assert.Equal(t, 0, c.Len())
}

func TestEmbeddingCache_WriteFailureIsSwallowed(t *testing.T) {
	// A file where the cache directory should be makes every write fail
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	core, logs := observer.New(zap.WarnLevel)
	c := NewEmbeddingCache(blocker, WithLogger(zap.New(core)))
	c.Set(result("a"), 0)

	assert.Equal(t, 0, c.Len(), "index not updated when the entry write fails")
	assert.Equal(t, 1, logs.FilterMessage("embedding cache write failed").Len())
}

func TestEmbeddingCache_FailedWriteKeepsOldest(t *testing.T) {
	dir := t.TempDir()
	c := NewEmbeddingCache(dir, WithMaxEntries(1))
	c.Set(result("a"), 0)

	// A non-empty directory at the entry path makes the rename fail
	target := filepath.Join(dir, Key("b", "m1")[:32]+".json")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "x"), 0755))

	c.Set(result("b"), 0)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("a", "m1")
	assert.True(t, ok, "nothing evicted for a write that failed")

	reopened := NewEmbeddingCache(dir)
	assert.Equal(t, 1, reopened.Len())
	_, ok = reopened.Get("a", "m1")
	assert.True(t, ok, "persisted index still lists the oldest entry")
}
