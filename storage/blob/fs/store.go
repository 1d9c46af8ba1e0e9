package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

const metaExt = ".meta"

// Store implements core.BlobStore on the local filesystem. Keys map to
// relative file paths under the root; a `.meta` sidecar file holds the
// content type and user metadata.
type Store struct {
	root string
}

var _ core.BlobStore = (*Store)(nil) // interface compliance check

// New returns a filesystem-backed blob store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(root, "root")).Check(); err != nil {
		return nil, errors.Wrap(err, "fs.New")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob root")
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.BlobDriver { return core.BlobDriverFS }

// sanitizeKey forbids path traversal and absolute keys.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.Contains(key, "..") {
		return "", errors.Errorf("invalid key %q contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.Errorf("invalid absolute key %q", key)
	}
	if strings.HasSuffix(key, metaExt) {
		return "", errors.Errorf("invalid key %q: reserved suffix", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + metaExt, nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (mf metaFile) info(key string) core.BlobInfo {
	return core.BlobInfo{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.UpdatedAt,
	}
}

// Put streams r to a temp file and moves it into place, replacing any previous blob.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	if err = os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "creating blob dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return core.BlobInfo{}, errors.Wrapf(err, "writing blob %s", key)
	}
	if err = os.Rename(tmp.Name(), dataPath); err != nil {
		return core.BlobInfo{}, errors.Wrapf(err, "moving blob %s", key)
	}

	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		UpdatedAt:   time.Now().UTC(),
	}
	if err = writeMeta(metaPath, mf); err != nil {
		return core.BlobInfo{}, errors.Wrapf(err, "writing metadata of %s", key)
	}
	return mf.info(key), nil
}

func (s *Store) Get(_ context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, nil, err
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return core.BlobInfo{}, nil, notFoundOr(err, key)
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return core.BlobInfo{}, nil, notFoundOr(err, key)
	}
	return mf.info(key), file, nil
}

func (s *Store) Head(_ context.Context, key string) (core.BlobInfo, error) {
	_, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return core.BlobInfo{}, notFoundOr(err, key)
	}
	return mf.info(key), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err = os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "deleting blob %s", key)
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// List walks the root collecting `.meta` files whose key starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.BlobInfo, error) {
	infos := make([]core.BlobInfo, 0)
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaExt) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaExt))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		infos = append(infos, mf.info(key))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing blobs")
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL is not supported: blobs are only reachable through the API.
func (s *Store) PresignURL(context.Context, string, core.BlobURLOptions) (string, error) {
	return "", core.ErrBlobUnsupported
}

func notFoundOr(err error, key string) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return errors.Wrap(core.ErrBlobNotFound, key)
	}
	return errors.Wrapf(err, "reading blob %s", key)
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

func writeMeta(path string, mf metaFile) error {
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}
	return mf, nil
}
