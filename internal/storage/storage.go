package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Key prefixes inside the bucket.
const (
	PrefixPlans       = "plantas"
	PrefixPhotos      = "visitas"
	PrefixPointClouds = "nuvens"
	PrefixModels      = "modelos"
)

// ErrObjectNotFound is returned when deleting or reading a missing key.
var ErrObjectNotFound = errors.New("object not found")

// Object is a file handed to the store. Size may be -1 when unknown.
type Object struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// ObjectStore persists uploaded files and maps keys to public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, obj Object) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	// KeyFromURL reverses PublicURL. It reports false for URLs the store
	// did not produce, such as external point-cloud links.
	KeyFromURL(url string) (string, bool)
}

// publicURLs implements PublicURL/KeyFromURL over a fixed base URL.
type publicURLs struct {
	base string
}

func (p publicURLs) PublicURL(key string) string {
	return p.base + "/" + strings.TrimLeft(key, "/")
}

func (p publicURLs) KeyFromURL(url string) (string, bool) {
	prefix := p.base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// ContentTypeFor guesses a content type from the file extension of name.
// It falls back to application/octet-stream.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".pdf":
		return "application/pdf"
	case ".ifc":
		return "application/x-step"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func contentTypeOf(obj Object) string {
	if obj.ContentType != "" {
		return obj.ContentType
	}
	return ContentTypeFor(obj.Name)
}
