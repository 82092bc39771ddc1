package cache

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/acsense/internal/embedding"
	"github.com/ppiankov/acsense/internal/logging"
	"github.com/ppiankov/acsense/internal/metrics"
)

const (
	// DefaultTTL is how long an embedding stays valid
	DefaultTTL = 30 * 24 * time.Hour

	// DefaultMaxEntries bounds the index before FIFO eviction
	DefaultMaxEntries = 50000

	indexName     = "embedding_index"
	previewLength = 50
	entryNameLen  = 32
)

type indexEntry struct {
	TextPreview string    `json:"text_preview"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	HitCount    int       `json:"hit_count"`
}

type entryFile struct {
	Embedding embedding.Result `json:"embedding"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// EmbeddingCache persists embeddings on disk keyed by model and text.
// Entries expire after a TTL; when full the oldest entry is evicted.
// All index access is serialized by one mutex.
type EmbeddingCache struct {
	mu         sync.Mutex
	store      *DiskStore
	index      map[string]*indexEntry
	ttl        time.Duration
	maxEntries int
	hits       int64
	misses     int64

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an EmbeddingCache
type Option func(*EmbeddingCache)

// WithTTL sets the default entry lifetime
func WithTTL(ttl time.Duration) Option {
	return func(c *EmbeddingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries sets the eviction bound
func WithMaxEntries(n int) Option {
	return func(c *EmbeddingCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithLogger sets the logger for disk failures
func WithLogger(l *zap.Logger) Option {
	return func(c *EmbeddingCache) { c.logger = logging.OrNop(l) }
}

// WithMetrics exports hit, miss and eviction counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *EmbeddingCache) { c.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *EmbeddingCache) { c.now = now }
}

// NewEmbeddingCache opens the cache in dir, loading any existing index.
// An unreadable index starts the cache empty.
func NewEmbeddingCache(dir string, opts ...Option) *EmbeddingCache {
	c := &EmbeddingCache{
		store:      NewDiskStore(dir),
		index:      make(map[string]*indexEntry),
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.store.Read(indexName, &c.index); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("embedding cache index unreadable, starting empty",
				zap.String("dir", dir), zap.Error(err))
		}
		c.index = make(map[string]*indexEntry)
	}
	for k, e := range c.index {
		if e == nil {
			delete(c.index, k)
		}
	}

	return c
}

// Get returns the cached embedding for text under model. Expired, missing
// or corrupt entries are purged and reported as a miss.
func (c *EmbeddingCache) Get(text, model string) (*embedding.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(text, model)
	entry, ok := c.index[key]
	if !ok {
		c.miss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.deleteLocked(key)
		c.miss()
		return nil, false
	}

	var file entryFile
	if err := c.store.Read(entryName(key), &file); err != nil || file.Embedding.Text != text || len(file.Embedding.Vector) == 0 {
		c.deleteLocked(key)
		c.miss()
		return nil, false
	}

	entry.HitCount++
	c.saveIndexLocked()
	c.hits++
	c.metrics.CacheHit()

	result := file.Embedding
	return &result, true
}

// Set stores an embedding. A zero ttl uses the cache default. Storing an
// existing key replaces it without eviction. Eviction happens only once
// the new entry file is written.
func (c *EmbeddingCache) Set(result embedding.Result, ttl time.Duration) {
	if strings.TrimSpace(result.Text) == "" || len(result.Vector) == 0 {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(result.Text, result.Model)
	now := c.now()
	if result.Dimensions == 0 {
		result.Dimensions = len(result.Vector)
	}
	file := entryFile{
		Embedding: result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := c.store.Write(entryName(key), file); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
		return
	}

	if _, exists := c.index[key]; !exists {
		for len(c.index) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.index[key] = &indexEntry{
		TextPreview: preview(result.Text),
		Model:       result.Model,
		Dimensions:  result.Dimensions,
		CreatedAt:   file.CreatedAt,
		ExpiresAt:   file.ExpiresAt,
	}
	c.saveIndexLocked()
}

// GetBatch looks up many texts, returning hits by text and the misses in
// input order
func (c *EmbeddingCache) GetBatch(texts []string, model string) (map[string]embedding.Result, []string) {
	hits := make(map[string]embedding.Result, len(texts))
	var misses []string
	for _, t := range texts {
		if r, ok := c.Get(t, model); ok {
			hits[t] = *r
			continue
		}
		misses = append(misses, t)
	}
	return hits, misses
}

// SetBatch stores many embeddings with the same ttl
func (c *EmbeddingCache) SetBatch(results []embedding.Result, ttl time.Duration) {
	for _, r := range results {
		c.Set(r, ttl)
	}
}

// Clear removes every entry and resets the counters
func (c *EmbeddingCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]*indexEntry)
	c.hits, c.misses = 0, 0
	return c.store.Clear()
}

// Stats returns size and hit counters
func (c *EmbeddingCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:       len(c.index),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Len returns the number of indexed entries
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Dir returns the cache directory
func (c *EmbeddingCache) Dir() string {
	return c.store.Dir()
}

func (c *EmbeddingCache) miss() {
	c.misses++
	c.metrics.CacheMiss()
}

func (c *EmbeddingCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.index {
		if oldestKey == "" || e.CreatedAt.Before(oldest) || (e.CreatedAt.Equal(oldest) && k < oldestKey) {
			oldestKey, oldest = k, e.CreatedAt
		}
	}
	if oldestKey == "" {
		return
	}

	if err := c.store.Remove(entryName(oldestKey)); err != nil {
		c.logger.Warn("embedding cache evict failed", zap.Error(err))
	}
	delete(c.index, oldestKey)
	c.metrics.CacheEviction()
}

func (c *EmbeddingCache) deleteLocked(key string) {
	if err := c.store.Remove(entryName(key)); err != nil {
		c.logger.Warn("embedding cache delete failed", zap.Error(err))
	}
	delete(c.index, key)
	c.saveIndexLocked()
}

func (c *EmbeddingCache) saveIndexLocked() {
	if err := c.store.Write(indexName, c.index); err != nil {
		c.logger.Warn("embedding cache index save failed", zap.Error(err))
	}
}

func entryName(key string) string {
	if len(key) > entryNameLen {
		return key[:entryNameLen]
	}
	return key
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength])
}
