// Package blob selects the configured core.BlobStore implementation.
package blob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	fsblob "github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/fs"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/memory"
	s3blob "github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/s3"
)

// Open returns the blob store named by conf.Driver: fs (default), s3 or memory.
func Open(ctx context.Context, conf core.BlobConfig) (core.BlobStore, error) {
	switch core.BlobDriver(conf.Driver) {
	case core.BlobDriverFS, "":
		root := conf.Root
		if root == "" {
			root = "./blobdata"
		}
		return fsblob.New(root)
	case core.BlobDriverS3:
		return s3blob.New(ctx, conf)
	case core.BlobDriverMemory:
		return memory.New(), nil
	default:
		return nil, errors.Errorf("unknown blob driver %q", conf.Driver)
	}
}
