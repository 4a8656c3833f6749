package storage

import (
	"context"
	"errors"
	"time"
)

// DocxContentType is the media type of every blob this service stores.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrPresignUnsupported = errors.New("presigned urls not supported by this store")

	errInjected = errors.New("injected failure")
)

// BlobStore holds template and generated document containers. Failures are
// reported as *apperr.StorageError.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Presign(ctx context.Context, key string, expires time.Duration) (string, error)
}

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func TemplateKey(id string) string { return "templates/" + id + ".docx" }

func DocumentKey(id string) string { return "documents/" + id + ".docx" }
