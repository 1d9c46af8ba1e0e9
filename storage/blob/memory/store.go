// Package memory implements an in-memory core.BlobStore for tests.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

type blobEntry struct {
	info core.BlobInfo
	data []byte
}

// Store implements core.BlobStore backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]blobEntry
}

var _ core.BlobStore = (*Store)(nil) // interface compliance check

func New() *Store { return &Store{objs: make(map[string]blobEntry)} }

func (s *Store) Driver() core.BlobDriver { return core.BlobDriverMemory }

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.BlobInfo{}, errors.Wrapf(err, "reading blob %s", key)
	}
	info := core.BlobInfo{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	s.objs[key] = blobEntry{info: info, data: b}
	s.mu.Unlock()

	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.BlobInfo{}, nil, errors.Wrap(core.ErrBlobNotFound, key)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(dataCopy)), nil
}

func (s *Store) Head(_ context.Context, key string) (core.BlobInfo, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.BlobInfo{}, errors.Wrap(core.ErrBlobNotFound, key)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

// Delete removes the blob returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BlobInfo, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			info := v.info
			info.Metadata = cloneMetadata(info.Metadata)
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) PresignURL(context.Context, string, core.BlobURLOptions) (string, error) {
	return "", core.ErrBlobUnsupported
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
