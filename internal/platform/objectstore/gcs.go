package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"childhood-friend/internal/config"
	"childhood-friend/internal/platform/logger"
)

// GCS stores media objects in a single Google Cloud Storage bucket.
type GCS struct {
	log           *logger.Logger
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func New(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*GCS, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage bucket is not configured")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client failed: %w", err)
	}

	store := &GCS{
		log:           log.With("service", "objectstore.GCS"),
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
	store.log.Info("object storage initialized", "bucket", cfg.Bucket, "public_base_url", store.publicBaseURL)
	return store, nil
}

// Upload writes the whole object and returns its public URL.
func (s *GCS) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = resolveContentType(key, contentType)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s failed: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer %s failed: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// OpenStream starts a resumable upload that grows with every Write. The
// object becomes visible when the returned writer is closed. ctx bounds
// the whole upload, so callers pass a context that outlives the stream.
func (s *GCS) OpenStream(ctx context.Context, key, contentType string) (io.WriteCloser, error) {
	if key == "" {
		return nil, errors.New("object key is empty")
	}
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = resolveContentType(key, contentType)
	// flush to GCS in 1 MiB pieces instead of buffering 16 MiB per connection
	w.ChunkSize = 1 << 20
	return w, nil
}

// EnsureFolder creates the zero-byte "prefix/" marker used by console browsers.
func (s *GCS) EnsureFolder(ctx context.Context, prefix string) error {
	key := strings.TrimRight(prefix, "/") + "/"
	obj := s.client.Bucket(s.bucket).Object(key)

	_, err := obj.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("stat folder %s failed: %w", key, err)
	}

	w := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return fmt.Errorf("create folder %s failed: %w", key, err)
	}
	s.log.Debug("folder created", "key", key)
	return nil
}

func (s *GCS) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, escaped)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, escaped)
}

// Ping reads the bucket attributes, which needs only storage.buckets.get.
func (s *GCS) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("get bucket %s attrs failed: %w", s.bucket, err)
	}
	return nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

// another connection created the marker first
func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func resolveContentType(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
