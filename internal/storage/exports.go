// Package storage archives raw chat exports to S3-compatible object storage
// so an analysis can be audited or re-run from its original input.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chatscope/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// S3Storage handles object storage operations
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage creates a new S3/MinIO storage client
func NewS3Storage(config S3Config) (*S3Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Verify bucket exists (bucket must be created out-of-band)
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist: create it before starting the server", config.BucketName)
	}

	return &S3Storage{
		client: client,
		bucket: config.BucketName,
	}, nil
}

// ExportKey is the object key for an archived export.
// Telegram/Instagram/Discord exports are JSON; WhatsApp exports are plain text.
func ExportKey(resultID, platform string) string {
	ext := "json"
	if platform == "whatsapp" {
		ext = "txt"
	}
	return fmt.Sprintf("exports/%s/%s.%s", resultID, platform, ext)
}

// ArchiveExport stores a raw export under the analysis result's ID and
// returns the object key.
func (s *S3Storage) ArchiveExport(ctx context.Context, resultID, platform string, data []byte) (string, error) {
	key := ExportKey(resultID, platform)

	ctx, span := tracer.Start(ctx, "storage.archive_export",
		trace.WithAttributes(
			attribute.String("result.id", resultID),
			attribute.String("chat.platform", platform),
			attribute.Int("export.size", len(data)),
		))
	defer span.End()

	contentType := "application/json"
	if platform == "whatsapp" {
		contentType = "text/plain; charset=utf-8"
	}

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyStorageError(err, "archive export")
	}

	return key, nil
}

// Download retrieves an archived export from S3/MinIO
func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage.download",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}

	span.SetAttributes(attribute.Int("export.size", len(data)))
	return data, nil
}

// Delete removes an archived export from S3/MinIO
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "storage.delete",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for MinIO error response
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	// Check for network/connection errors
	errStr := err.Error()
	for _, marker := range []string{"connection", "timeout", "network", "dial", "refused"} {
		if strings.Contains(errStr, marker) {
			return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
		}
	}

	// Return wrapped generic error for unknown cases
	return fmt.Errorf("%s failed: %w", operation, err)
}
