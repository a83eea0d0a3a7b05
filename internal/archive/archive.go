// Package archive keeps a copy of every raw upload that reaches a preview
// batch, keyed by month, uploader and content fingerprint.
package archive

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Archiver stores raw upload bytes and returns where they went.
type Archiver interface {
	Archive(ctx context.Context, object string, data []byte) (string, error)
}

// ObjectName builds the object key for an upload.
func ObjectName(month, uploader, fingerprint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("uploads", month, strings.ToLower(uploader), fingerprint+ext)
}

// Nop discards uploads.
type Nop struct{}

func (Nop) Archive(context.Context, string, []byte) (string, error) {
	return "", nil
}

// GCS archives uploads into a Google Cloud Storage bucket using
// Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Archive(ctx context.Context, object string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	if ct := mime.TypeByExtension(path.Ext(object)); ct != "" {
		w.ContentType = ct
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
