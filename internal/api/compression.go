package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/zstd"
)

// responseCompressor compresses JSON responses with whichever of
// gzip/brotli/zstd the client accepts. Only the listed content types are
// compressed, so text/event-stream responses pass through untouched and
// per-event flushing keeps working.
func responseCompressor() *middleware.Compressor {
	compressor := middleware.NewCompressor(5, "application/json", "text/plain")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	compressor.SetEncoder("zstd", func(w io.Writer, _ int) io.Writer {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil
		}
		return zw
	})
	return compressor
}

// decompressMiddleware handles decompression of request bodies based on Content-Encoding header
// Supports: zstd
// Falls back to uncompressed if no Content-Encoding header
func decompressMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")

			// No compression, pass through
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Handle zstd compression
			if strings.EqualFold(encoding, "zstd") {
				decoder, err := zstd.NewReader(r.Body)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Failed to create zstd decoder")
					return
				}
				defer decoder.Close()

				// Replace request body with decompressed reader
				r.Body = io.NopCloser(decoder)

				// Remove Content-Encoding header so downstream handlers see uncompressed data
				r.Header.Del("Content-Encoding")

				// Update Content-Length to unknown since decompressed size differs
				r.Header.Del("Content-Length")
				r.ContentLength = -1

				next.ServeHTTP(w, r)
				return
			}

			// Unsupported encoding
			respondError(w, http.StatusUnsupportedMediaType,
				"Unsupported Content-Encoding: "+encoding)
		})
	}
}
