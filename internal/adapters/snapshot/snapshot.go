// Package snapshot stores feed images taken when a session auto-resets.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/okian/shootsim/pkg/logger"
)

// DefaultDir is where DirStore writes when no directory is configured.
const DefaultDir = "shootlog"

// Sentinel errors.
var (
	ErrInvalidName = errors.New("invalid snapshot name")
	ErrNoImage     = errors.New("no image to save")
)

func encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DirStore writes PNG files into a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir, or DefaultDir if dir is empty.
// The directory is created on first save.
func NewDirStore(dir string) *DirStore {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	return &DirStore{dir: dir}
}

// Dir returns the target directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// Save encodes img and writes it as name. It returns the file path.
func (s *DirStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	data, err := encode(img)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// objectStore is the part of *minio.Client the bucket store needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioConfig addresses an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// BucketStore uploads PNG objects to a MinIO bucket.
type BucketStore struct {
	client objectStore
	bucket string
	log    logger.Logger

	mu    sync.Mutex
	ready bool
}

// NewBucketStore connects to MinIO. The bucket is created on first save if
// it does not exist.
func NewBucketStore(cfg MinioConfig) (*BucketStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return newBucketStore(client, cfg.Bucket), nil
}

func newBucketStore(client objectStore, bucket string) *BucketStore {
	return &BucketStore{
		client: client,
		bucket: bucket,
		log:    logger.Get().Named("snapshot"),
	}
}

func (s *BucketStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
		s.log.Info(ctx, "created snapshot bucket", logger.String("bucket", s.bucket))
	}
	s.ready = true
	return nil
}

// Save uploads img as name and returns "bucket/name".
func (s *BucketStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	data, err := encode(img)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	return s.bucket + "/" + name, nil
}
