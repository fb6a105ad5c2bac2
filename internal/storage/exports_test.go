package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestExportKey(t *testing.T) {
	tests := []struct {
		platform string
		want     string
	}{
		{"whatsapp", "exports/abc-123/whatsapp.txt"},
		{"telegram", "exports/abc-123/telegram.json"},
		{"instagram", "exports/abc-123/instagram.json"},
		{"discord", "exports/abc-123/discord.json"},
	}
	for _, tt := range tests {
		if got := ExportKey("abc-123", tt.platform); got != tt.want {
			t.Errorf("ExportKey(%s) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestClassifyStorageError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"nil error", nil, nil},
		{"missing key", minio.ErrorResponse{Code: "NoSuchKey"}, ErrObjectNotFound},
		{"missing bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, ErrObjectNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, ErrAccessDenied},
		{"bad credentials", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, ErrAccessDenied},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrNetworkError},
		{"timeout", errors.New("request timeout"), ErrNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStorageError(tt.err, "download")
			if tt.sentinel == nil {
				if got != nil {
					t.Fatalf("classifyStorageError(nil) = %v", got)
				}
				return
			}
			if !errors.Is(got, tt.sentinel) {
				t.Errorf("classifyStorageError(%v) = %v, want %v", tt.err, got, tt.sentinel)
			}
		})
	}

	// Unknown errors stay inspectable through the wrap chain.
	base := errors.New("unexpected")
	got := classifyStorageError(fmt.Errorf("wrapped: %w", base), "download")
	if !errors.Is(got, base) {
		t.Errorf("unknown error lost its cause: %v", got)
	}
}
