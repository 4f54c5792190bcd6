package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("blob: object not found")

// PutOptions carries the content type and flat metadata stored alongside
// an object.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	Updated     time.Time
}

// BlobStore is the binary storage contract the core depends on: write,
// streaming read, existence. Deletion is deliberately absent — blob
// lifecycle is the store's own concern and orphans are reconciled
// out-of-band.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
