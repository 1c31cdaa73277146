package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/fsutil"
)

// MinioAPI is the part of the minio client the backend uses.
type MinioAPI interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// MinioConfig configures a MinIO (or other S3-compatible) backend.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Minio stores uploads in a MinIO bucket.
type Minio struct {
	client MinioAPI
	bucket string
	prefix string
}

// NewMinio connects with static credentials.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio storage requires endpoint and bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewMinioWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewMinioWithClient wraps an existing client.
func NewMinioWithClient(client MinioAPI, bucket, prefix string) *Minio {
	return &Minio{client: client, bucket: bucket, prefix: fsutil.CleanRelPath(prefix)}
}

// Put uploads the body. minio reports progress by reading len(uploaded)
// bytes from the Progress reader.
func (s *Minio) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	key := path.Join(s.prefix, fsutil.CleanRelPath(req.Key))
	ct := contentType(req)

	tracker := newProgressTracker(req.Size, onProgress)
	defer tracker.stop()

	info, err := s.client.PutObject(ctx, s.bucket, key, req.Body, req.Size, minio.PutObjectOptions{
		ContentType: ct,
		Progress:    tracker,
	})
	if err != nil {
		return domain.PutResult{}, fmt.Errorf("minio put %s: %w", key, err)
	}
	return domain.PutResult{Reference: key, FinalSize: info.Size}, nil
}

// Open streams an object back. The object is stat'ed first so a missing
// key fails here rather than on first read.
func (s *Minio) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinio(ref, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, translateMinio(ref, err)
	}
	return obj, nil
}

// Ping checks the bucket exists.
func (s *Minio) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("minio bucket %s does not exist", s.bucket)
	}
	return nil
}

func translateMinio(ref string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", ref, domain.ErrObjectNotFound)
	}
	return fmt.Errorf("minio get %s: %w", ref, err)
}
