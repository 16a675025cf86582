package muxhandlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/vitalvas/waypoint/mux"
)

// ErrInvalidCompressionLevel is returned when CompressionConfig.Level is
// outside the valid compression level range.
var ErrInvalidCompressionLevel = errors.New("compression: invalid compression level")

// CompressionConfig configures the Compression middleware behaviour.
type CompressionConfig struct {
	// Level is the compression level for both gzip and deflate. When zero,
	// flate.DefaultCompression is used. Must be in
	// [flate.HuffmanOnly, flate.BestCompression] or zero.
	Level int

	// MinLength is the minimum response body size in bytes before compression
	// is applied. When zero, all non-empty responses are compressed.
	MinLength int
}

// compressor is the common interface implemented by both gzip.Writer and
// flate.Writer.
type compressor interface {
	io.WriteCloser
	Reset(w io.Writer)
}

// CompressionMiddleware returns a sending-response middleware that
// compresses response bodies using gzip or deflate when the client
// advertises support via the Accept-Encoding header. Gzip is preferred over
// deflate when the client accepts both. Writers are reused through
// sync.Pool instances.
//
// Compression is skipped when:
//   - The request does not include "gzip" or "deflate" in Accept-Encoding
//   - The response already has a Content-Encoding header
//   - The response Content-Type is an inherently compressed format
//     (image/*, video/*, audio/*, or common archive types)
//   - The body is shorter than MinLength
//
// It returns ErrInvalidCompressionLevel if Level is outside the valid range.
func CompressionMiddleware(cfg CompressionConfig) (mux.MiddlewareFunc, error) {
	level := cfg.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	minLength := cfg.MinLength

	pools := map[string]*sync.Pool{
		"gzip": {
			New: func() any {
				w, _ := gzip.NewWriterLevel(io.Discard, level)
				return w
			},
		},
		"deflate": {
			New: func() any {
				w, _ := flate.NewWriter(io.Discard, level)
				return w
			},
		},
	}

	return func(c *mux.Context, res *mux.Response, next mux.Next) (*mux.Response, error) {
		if res == nil || len(res.Body) == 0 || len(res.Body) < minLength {
			return next(c, res)
		}

		if res.Header == nil {
			res.Header = make(http.Header)
		}
		res.Header.Add("Vary", "Accept-Encoding")

		encoding := selectEncoding(c.Request)
		if encoding == "" || res.Header.Get("Content-Encoding") != "" || isCompressedContentType(res.Header.Get("Content-Type")) {
			return next(c, res)
		}

		pool := pools[encoding]
		w := pool.Get().(compressor)
		defer pool.Put(w)

		var buf bytes.Buffer
		w.Reset(&buf)
		if _, err := w.Write(res.Body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		res.Body = buf.Bytes()
		res.Header.Set("Content-Encoding", encoding)
		res.Header.Del("Content-Length")

		return next(c, res)
	}, nil
}

// selectEncoding returns the best supported encoding from the Accept-Encoding
// header. It returns "gzip", "deflate", or "" if neither is accepted. When
// both are accepted with equal quality, gzip is preferred.
func selectEncoding(r *http.Request) string {
	var (
		gzipQ    float64 = -1
		deflateQ float64 = -1
		wildQ    float64 = -1
	)

	for part := range strings.SplitSeq(r.Header.Get("Accept-Encoding"), ",") {
		name, quality := parseEncoding(strings.TrimSpace(part))
		q := parseQuality(quality)

		switch strings.ToLower(name) {
		case "gzip":
			gzipQ = q
		case "deflate":
			deflateQ = q
		case "*":
			wildQ = q
		}
	}

	if gzipQ < 0 && wildQ >= 0 {
		gzipQ = wildQ
	}

	if deflateQ < 0 && wildQ >= 0 {
		deflateQ = wildQ
	}

	if gzipQ > 0 && gzipQ >= deflateQ {
		return "gzip"
	}

	if deflateQ > 0 {
		return "deflate"
	}

	return ""
}

// parseQuality converts a quality string to a float64.
// An empty string defaults to 1.0 (implicit full quality per RFC 9110).
func parseQuality(s string) float64 {
	if s == "" {
		return 1.0
	}

	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return q
}

// parseEncoding splits an encoding token into the encoding name and quality
// value. For "gzip;q=0.8" it returns ("gzip", "0.8").
func parseEncoding(s string) (encoding, quality string) {
	encoding, params, ok := strings.Cut(s, ";")
	if !ok {
		return strings.TrimSpace(encoding), ""
	}

	params = strings.TrimSpace(params)
	if key, val, found := strings.Cut(params, "="); found && strings.TrimSpace(key) == "q" {
		return strings.TrimSpace(encoding), strings.TrimSpace(val)
	}

	return strings.TrimSpace(encoding), ""
}

// compressedContentTypes contains content type prefixes and exact types that
// are already compressed and should not be double-compressed.
var compressedContentTypes = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/x-bzip2",
	"application/x-xz",
	"application/zstd",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
}

// isCompressedContentType reports whether the content type is an inherently
// compressed format.
func isCompressedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))

	for _, prefix := range compressedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}

	return false
}
