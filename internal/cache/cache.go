package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the cache key for a text under a model. The same scheme is
// used by pattern index builds and query lookups so both share entries.
func Key(text, model string) string {
	hash := sha256.Sum256([]byte(model + ":" + text))
	return hex.EncodeToString(hash[:])
}

// Stats summarizes cache effectiveness
type Stats struct {
	Size       int     `json:"size"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}
