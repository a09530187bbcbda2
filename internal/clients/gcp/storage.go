package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/relaychat/relay-backend/internal/logger"
)

// Storage reads attachment blobs out of the configured GCS bucket. Attachment
// rows store bucket-relative keys, so ObjectURI turns a key into the gs:// form
// the long-running annotation APIs want.
type Storage interface {
	Download(ctx context.Context, key string) ([]byte, error)
	ObjectURI(key string) string
	Close() error
}

type storageService struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewStorage(log *logger.Logger) (Storage, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Storage")

	bucket := strings.TrimSpace(os.Getenv("ATTACHMENT_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("missing ATTACHMENT_BUCKET")
	}

	ctx := context.Background()
	client, err := storage.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &storageService{log: slog, client: client, bucket: bucket}, nil
}

func (s *storageService) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	bucket := s.bucket
	if strings.HasPrefix(key, "gs://") {
		b, k, err := parseGCSURI(key)
		if err != nil {
			return nil, err
		}
		bucket, key = b, k
	}

	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage read %s/%s: %w", bucket, key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *storageService) ObjectURI(key string) string {
	if strings.HasPrefix(key, "gs://") {
		return key
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, strings.TrimPrefix(key, "/"))
}

func (s *storageService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
