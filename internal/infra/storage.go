// README: KYC document uploads to the Firebase default storage bucket.
package infra

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

type FirebaseStorage struct {
	bucket *gcs.BucketHandle
}

func NewFirebaseStorage(ctx context.Context, app *firebase.App) (*FirebaseStorage, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Storage: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("firebase default bucket: %w", err)
	}
	return &FirebaseStorage{bucket: bucket}, nil
}

// Upload writes r to path and returns the stored object path. Objects are written
// with the bucket's default (private) ACL.
func (s *FirebaseStorage) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	w := s.bucket.Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", path, err)
	}
	return path, nil
}
