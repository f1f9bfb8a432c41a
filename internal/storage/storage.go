// Package storage writes normalized images to their destination.
//
// A Sink receives one encoded PNG per call. DirSink writes to a local
// directory; MinioSink uploads to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ironsheep/image-normalizer/internal/config"
)

// contentTypes maps the extensions a Sink may be asked to store. Normalized
// output is always PNG; pass-through copies keep their input format.
var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// ContentType returns the media type of an object named name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Sink stores one normalized image under name.
type Sink interface {
	// Put stores data and returns the location it was written to.
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// OutputName maps an input filename to the name of its normalized output:
// the base name with its extension replaced by ".png".
func OutputName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "image"
	}
	return stem + ".png"
}

// DirSink writes images into a local directory, creating it on first use.
type DirSink struct {
	Dir string
}

// NewDirSink returns a DirSink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// Put writes data to Dir/name.
func (d *DirSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("storage: empty object name")
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", d.Dir, err)
	}

	dest := filepath.Join(d.Dir, filepath.Base(name))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// MinioSink uploads images to a bucket on an S3-compatible server.
type MinioSink struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioSink connects to the server described by cfg.
func NewMinioSink(cfg config.Minio) (*MinioSink, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Minio client: %w", err)
	}

	return &MinioSink{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectKey returns the key name is stored under.
func (m *MinioSink) ObjectKey(name string) string {
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}

// Put uploads data as bucket/prefix/name.
func (m *MinioSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", errors.New("storage: empty object name")
	}

	key := m.ObjectKey(name)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType(name)})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, m.bucket, err)
	}
	return m.bucket + "/" + key, nil
}
