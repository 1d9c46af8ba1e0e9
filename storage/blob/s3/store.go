// Package s3 implements core.BlobStore on an S3-compatible backend (AWS S3 or MinIO).
package s3

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

const defaultPresignExpiry = 15 * time.Minute

// Store maps blob keys to object keys of a single bucket.
type Store struct {
	client  *s3.Client
	bucket  string
	presign *s3.PresignClient
}

var _ core.BlobStore = (*Store)(nil) // interface compliance check

// New creates an S3 blob store. Credentials come from the default AWS chain
// (AWS_ACCESS_KEY_ID, shared config, instance role...).
func New(ctx context.Context, conf core.BlobConfig) (*Store, error) {
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(conf.Bucket, "bucket")).Check(); err != nil {
		return nil, errors.Wrap(err, "s3.New")
	}
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = conf.PathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})
	return &Store{client: client, bucket: conf.Bucket, presign: s3.NewPresignClient(client)}, nil
}

func (s *Store) Driver() core.BlobDriver { return core.BlobDriverS3 }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.BlobInfo{}, errors.Wrapf(err, "putting object %s", key)
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.BlobInfo{}, nil, notFoundOr(err, key)
	}
	info := s.info(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.BlobInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return core.BlobInfo{}, notFoundOr(err, key)
	}
	return s.info(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete heads the object first: S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if core.IsBlobNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, errors.Wrapf(err, "deleting object %s", key)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.BlobInfo, error) {
	infos := make([]core.BlobInfo, 0)
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, errors.Wrap(err, "listing objects")
		}
		for _, obj := range out.Contents {
			infos = append(infos, core.BlobInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns a time limited GET URL for key.
func (s *Store) PresignURL(ctx context.Context, key string, opts core.BlobURLOptions) (string, error) {
	method := strings.ToUpper(opts.Method)
	if method != "" && method != http.MethodGet {
		return "", core.ErrBlobUnsupported
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key}, func(po *s3.PresignOptions) {
		po.Expires = expiry
	})
	if err != nil {
		return "", errors.Wrapf(err, "presigning %s", key)
	}
	return out.URL, nil
}

func (s *Store) info(key string, size int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.BlobInfo {
	lm := time.Now().UTC()
	if lastModified != nil {
		lm = lastModified.UTC()
	}
	return core.BlobInfo{
		Key:          key,
		Size:         size,
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     md,
		LastModified: lm,
	}
}

// notFoundOr maps the various S3 "missing object" errors to core.ErrBlobNotFound.
func notFoundOr(err error, key string) error {
	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
		httpErr   interface{ HTTPStatusCode() int }
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return errors.Wrap(core.ErrBlobNotFound, key)
	case errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusNotFound:
		return errors.Wrap(core.ErrBlobNotFound, key)
	}
	return errors.Wrapf(err, "reading object %s", key)
}
