package models

import (
	"net/url"
	"strings"
)

// BlobRequest is one fully validated CDN request
type BlobRequest struct {
	Preset  Preset
	Actor   ActorID
	Content ContentID
	Format  OutputFormat
}

// CacheKey derives the object-storage key for the request
func (r BlobRequest) CacheKey() string {
	return NewCacheKey(r.Preset, r.Actor, r.Content, r.Format)
}

// NewCacheKey builds "<preset>/<actor>/<cid>.<format>".
//
// Preset and format names never contain '/' or '.', and the escaped actor
// and content identifiers never contain '/', so distinct tuples always
// produce distinct keys.
func NewCacheKey(preset Preset, actor ActorID, content ContentID, format OutputFormat) string {
	var b strings.Builder
	b.WriteString(string(preset))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(string(actor)))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(content.String()))
	b.WriteByte('.')
	b.WriteString(string(format))
	return b.String()
}

// Rendition is a transformed (or cached) image ready to serve
type Rendition struct {
	Data     []byte
	MIMEType string
	CacheHit bool
}
