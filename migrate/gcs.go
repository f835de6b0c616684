package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSBucket adapts a Cloud Storage bucket to the ObjectStore interface.
type GCSBucket struct {
	bucket *storage.BucketHandle
}

// NewGCSBucket wraps the named bucket of an existing storage client.
func NewGCSBucket(client *storage.Client, name string) *GCSBucket {
	return &GCSBucket{bucket: client.Bucket(name)}
}

// List returns the names of all objects under the prefix.
func (b *GCSBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("iterate objects: %w", err)
		}
		names = append(names, attrs.Name)
	}
}

// Open returns a reader over the named object.
func (b *GCSBucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return b.bucket.Object(name).NewReader(ctx)
}
