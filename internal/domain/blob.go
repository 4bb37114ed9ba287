package domain

import (
	"context"
	"io"
	"time"
)

// Object is a payload bound for object storage.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	// Metadata is stored as user metadata (x-amz-meta-*) on the object.
	Metadata map[string]string
}

// ObjectInfo describes a stored object as returned by a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads objects. PutMultipart splits Body into parts of
// partSize bytes.
type BlobWriter interface {
	Put(ctx context.Context, obj Object) error
	PutMultipart(ctx context.Context, obj Object, partSize int64) error
}

// BlobReader fetches and lists objects.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Newest returns the most recently modified object in infos, breaking ties
// on the greater key. ok is false for an empty slice.
func Newest(infos []ObjectInfo) (newest ObjectInfo, ok bool) {
	for i, info := range infos {
		if i == 0 || info.LastModified.After(newest.LastModified) ||
			(info.LastModified.Equal(newest.LastModified) && info.Key > newest.Key) {
			newest = info
		}
	}
	return newest, len(infos) > 0
}
