package models

import "time"

// CachedBlob is one transformed image as persisted by a row-oriented backend
// Maps to: cached_blob table
type CachedBlob struct {
	// "<preset>/<actor>/<cid>.<format>"
	CacheKey string `db:"cache_key" json:"cache_key"`

	// Encoded image bytes. The content type is sniffed when served.
	Content []byte `db:"content" json:"content,omitempty"`

	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
