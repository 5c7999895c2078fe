// Package objectstore archives synthesized voice files in a NATS JetStream
// object store bucket so chat hosts on other machines can fetch them.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerContentType  = "Content-Type"
	defaultContentType = "application/octet-stream"
	descriptionFmt     = "GSV2P voice files (%s)."
)

var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

// ErrBucketEmpty is returned when no bucket name is given.
var ErrBucketEmpty = errors.New("object store bucket name cannot be empty")

// VoiceStore implements core.ObjectStore on a JetStream object store.
type VoiceStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists. A ttl of
// zero keeps objects until they are deleted.
func New(jetstreamContext nats.JetStreamContext, bucketName string, ttl time.Duration) (*VoiceStore, error) {
	if bucketName == "" {
		return nil, ErrBucketEmpty
	}

	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf(descriptionFmt, bucketName),
		TTL:         ttl,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &VoiceStore{bucket: bucketName, store: store}, nil
}

// Bucket returns the bucket name.
func (s *VoiceStore) Bucket() string {
	return s.bucket
}

// Download reads a voice file back from the bucket.
func (s *VoiceStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores a voice file under key, tagging it with a content type
// derived from the key's extension.
func (s *VoiceStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upload of '%s' cancelled: %w", key, err)
	}

	headers := nats.Header{}
	headers.Set(headerContentType, ContentType(key))

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     headers,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}

// ContentType guesses the MIME type of a voice file from its name.
func ContentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if contentType, ok := audioContentTypes[ext]; ok {
		return contentType
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return defaultContentType
	}

	return contentType
}
