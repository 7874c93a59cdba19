// Package storage keeps user uploads in an object store and records them.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// Buckets uploads are grouped into.
const (
	BucketAvatars    = "avatars"
	BucketPostImages = "post-images"
)

// ObjectStore is the object storage collaborator.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// ValidBucket reports whether b is a known bucket.
func ValidBucket(b string) bool {
	return b == BucketAvatars || b == BucketPostImages
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// contentTypeForKey maps an image extension to its MIME type, or "".
func contentTypeForKey(key string) string {
	return imageTypes[strings.ToLower(path.Ext(key))]
}
