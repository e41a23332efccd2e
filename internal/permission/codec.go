package permission

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
)

// Compress gzips s at best compression and base64-encodes the result.
// Returns "" on any failure; no error escapes to callers.
func Compress(s string) string {
	if s == "" {
		return ""
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return ""
	}
	if _, err := zw.Write([]byte(s)); err != nil {
		return ""
	}
	if err := zw.Close(); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Decompress is the inverse of Compress: base64-decode then gunzip.
// Returns "" on any failure, including truncated or tampered input.
func Decompress(s string) string {
	if s == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return ""
	}
	return string(out)
}
