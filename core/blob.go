package core

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

type BlobDriver string

const (
	BlobDriverMemory BlobDriver = "memory" // tests
	BlobDriverFS     BlobDriver = "fs"     // local filesystem (dev)
	BlobDriverS3     BlobDriver = "s3"     // S3 / MinIO compatible
)

var (
	ErrBlobNotFound    = errors.New("blob not found")
	ErrBlobUnsupported = errors.New("blob store: unsupported operation")
)

type (
	BlobPutOptions struct {
		ContentType string
		Metadata    map[string]string
	}

	BlobURLOptions struct {
		Method string        // only GET is supported
		Expiry time.Duration // 15m when zero
	}

	BlobInfo struct {
		Key          string            `json:"key"`
		Size         int64             `json:"size_bytes"`
		ContentType  string            `json:"content_type,omitempty"`
		ETag         string            `json:"etag,omitempty"`
		Metadata     map[string]string `json:"metadata,omitempty"`
		LastModified time.Time         `json:"last_modified"`
	}

	// BlobStore is a key/value object store holding worksheet documents and previews.
	// Put replaces any existing object under the same key. Get and Head return
	// ErrBlobNotFound for missing keys.
	BlobStore interface {
		Put(ctx context.Context, key string, r io.Reader, opts BlobPutOptions) (BlobInfo, error)
		Get(ctx context.Context, key string) (BlobInfo, io.ReadCloser, error)
		Head(ctx context.Context, key string) (BlobInfo, error)
		Delete(ctx context.Context, key string) (bool, error)
		List(ctx context.Context, prefix string) ([]BlobInfo, error)
		PresignURL(ctx context.Context, key string, opts BlobURLOptions) (string, error)
		Driver() BlobDriver
	}
)

func IsBlobNotFound(err error) bool {
	return errors.Is(err, ErrBlobNotFound)
}
