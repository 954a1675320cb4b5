package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"certledger/internal/certificate/models"
	"certledger/internal/content"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore keeps one bucket object per pointer.
type GCSStore struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	prefix  string
	gateway string
	logger  *slog.Logger
}

// GCSOption configures a GCSStore.
type GCSOption func(*GCSStore)

// WithObjectPrefix namespaces objects inside the bucket.
func WithObjectPrefix(prefix string) GCSOption {
	return func(s *GCSStore) { s.prefix = prefix }
}

// WithGCSLogger sets the logger.
func WithGCSLogger(logger *slog.Logger) GCSOption {
	return func(s *GCSStore) { s.logger = logger }
}

// NewGCS opens a storage client for bucket. An empty credentialsFile uses
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile, gateway string, opts ...GCSOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs content: bucket not set")
	}
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs content: create storage client: %w", err)
	}
	s := &GCSStore{
		client:  client,
		bucket:  client.Bucket(bucket),
		gateway: gateway,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *GCSStore) object(ptr models.ContentPointer) *storage.ObjectHandle {
	return s.bucket.Object(s.prefix + string(ptr))
}

func (s *GCSStore) Put(ctx context.Context, data []byte) (models.ContentPointer, error) {
	ptr, err := content.PointerFor(data)
	if err != nil {
		return "", err
	}
	// The precondition turns a re-upload of the same payload into a no-op.
	w := s.object(ptr).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", content.Unavailable("put", err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			s.logger.Debug("content already stored", "pointer", ptr)
			return ptr, nil
		}
		return "", content.Unavailable("put", err)
	}
	return ptr, nil
}

func (s *GCSStore) Get(ctx context.Context, ptr models.ContentPointer) ([]byte, error) {
	if _, err := content.ParsePointer(ptr); err != nil {
		return nil, err
	}
	r, err := s.object(ptr).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, content.NotFound(ptr)
	}
	if err != nil {
		return nil, content.Unavailable("get", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, content.Unavailable("read", err)
	}
	if err := content.Verify(ptr, data); err != nil {
		s.logger.Error("corrupt content object", "pointer", ptr, "error", err)
		return nil, err
	}
	return data, nil
}

func (s *GCSStore) GatewayURL(ptr models.ContentPointer) string {
	return content.GatewayURL(s.gateway, ptr)
}
