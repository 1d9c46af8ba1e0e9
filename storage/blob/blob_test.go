package blob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	fsblob "github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/fs"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/memory"
	s3blob "github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/s3"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		conf       core.BlobConfig
		wantDriver core.BlobDriver
		wantErr    bool
	}{
		{name: "memory", conf: core.BlobConfig{Driver: "memory"}, wantDriver: core.BlobDriverMemory},
		{name: "fs", conf: core.BlobConfig{Driver: "fs", Root: t.TempDir()}, wantDriver: core.BlobDriverFS},
		{name: "s3 without bucket", conf: core.BlobConfig{Driver: "s3"}, wantErr: true},
		{name: "unknown", conf: core.BlobConfig{Driver: "gcs"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, store.Driver())
		})
	}
}

// every driver must honour the same contract
func TestStoreContract(t *testing.T) {
	fsStore, err := fsblob.New(t.TempDir())
	require.NoError(t, err)

	stores := map[string]core.BlobStore{
		"memory": memory.New(),
		"fs":     fsStore,
		"s3":     s3blob.NewMockForTests(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "materials/school-1/mat-1/document.json"

			_, err := store.Head(ctx, key)
			assert.True(t, core.IsBlobNotFound(err), "head missing: %v", err)
			_, _, err = store.Get(ctx, key)
			assert.True(t, core.IsBlobNotFound(err), "get missing: %v", err)

			opts := core.BlobPutOptions{ContentType: "application/json"}
			info, err := store.Put(ctx, key, bytes.NewReader([]byte(`{"v":1}`)), opts)
			require.NoError(t, err)
			assert.Equal(t, key, info.Key)
			assert.EqualValues(t, 7, info.Size)

			// overwrite
			_, err = store.Put(ctx, key, bytes.NewReader([]byte(`{"v":22}`)), opts)
			require.NoError(t, err)

			info, rc, err := store.Get(ctx, key)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			require.NoError(t, err)
			assert.Equal(t, `{"v":22}`, string(data))
			assert.Equal(t, "application/json", info.ContentType)

			_, err = store.Put(ctx, "materials/school-2/mat-9/preview.svg", bytes.NewReader([]byte("<svg/>")), core.BlobPutOptions{})
			require.NoError(t, err)

			infos, err := store.List(ctx, "materials/school-1/")
			require.NoError(t, err)
			if assert.Len(t, infos, 1) {
				assert.Equal(t, key, infos[0].Key)
			}

			existed, err := store.Delete(ctx, key)
			require.NoError(t, err)
			assert.True(t, existed)
			existed, err = store.Delete(ctx, key)
			require.NoError(t, err)
			assert.False(t, existed)
		})
	}
}
