package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive stores classified images under a per-request key.
type Archive interface {
	Name() string
	// Save stores data and returns where it went, to be passed back to Delete.
	Save(ctx context.Context, key, ext, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, location string) error
}

// LocalArchive writes images below a directory, one dated sub-directory per day.
type LocalArchive struct {
	dir string
	now func() time.Time
}

// NewLocalArchive creates a LocalArchive rooted at dir.
func NewLocalArchive(dir string) *LocalArchive {
	return &LocalArchive{dir: dir, now: time.Now}
}

func (a *LocalArchive) Name() string { return "local" }

func (a *LocalArchive) Save(_ context.Context, key, ext, _ string, data []byte) (string, error) {
	now := a.now()
	baseDir := filepath.Join(a.dir, now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	path := filepath.Join(baseDir, key+"."+ext)
	// O_EXCL: keys are unique, an existing file means something is wrong
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

func (a *LocalArchive) Delete(_ context.Context, location string) error {
	if err := os.Remove(location); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MinIOArchive stores images as objects in a MinIO (or any S3 compatible) bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive connects to endpoint and creates bucket when it does not exist yet.
func NewMinIOArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOArchive, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return &MinIOArchive{client: mc, bucket: bucket}, nil
}

func (a *MinIOArchive) Name() string { return "minio" }

func (a *MinIOArchive) Save(ctx context.Context, key, ext, contentType string, data []byte) (string, error) {
	object := time.Now().Format("2006/01/02") + "/" + key + "." + ext
	_, err := a.client.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return object, nil
}

func (a *MinIOArchive) Delete(ctx context.Context, location string) error {
	return a.client.RemoveObject(ctx, a.bucket, location, minio.RemoveObjectOptions{})
}
