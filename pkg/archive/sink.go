// Package archive exports the audit ledger as a self-verifying bundle: a
// ledger.jsonl file plus a manifest.json carrying the record count, the tip
// hash and the SHA-256 of the ledger file. Bundles go to a local directory,
// an S3 prefix or a GCS prefix.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned by a Sink when the named object does not exist.
var ErrNotFound = errors.New("archive: object not found")

// Sink stores named bundle objects.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// OpenSink resolves a destination:
//
//	/var/backups/dil, file:///var/backups/dil  local directory
//	s3://bucket/prefix                          Amazon S3 (or S3-compatible)
//	gs://bucket/prefix                          Google Cloud Storage
func OpenSink(ctx context.Context, dest string) (Sink, error) {
	if dest == "" {
		return nil, errors.New("archive: destination is required")
	}
	if !strings.Contains(dest, "://") {
		return NewDirSink(dest), nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("archive: parse destination: %w", err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	switch u.Scheme {
	case "file":
		return NewDirSink(u.Path), nil
	case "s3":
		return NewS3SinkFromEnv(ctx, u.Host, prefix)
	case "gs":
		return newGCSSink(ctx, u.Host, prefix)
	default:
		return nil, fmt.Errorf("archive: unsupported destination scheme %q", u.Scheme)
	}
}
