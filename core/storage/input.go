package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
)

const objectScheme = "s3://"

// IsObjectPath reports whether path names a bucket object rather than a
// local file.
func IsObjectPath(path string) bool {
	return strings.HasPrefix(path, objectScheme)
}

// Open resolves an import input path. Local paths open directly;
// "s3://bucket/key" paths are fetched through the storage client. An
// unreadable input is a setup failure, so existence is verified before
// the reader is handed to the parser.
func Open(ctx context.Context, client Client, path string) (io.ReadCloser, error) {
	if !IsObjectPath(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		return f, nil
	}

	if client == nil {
		return nil, fmt.Errorf("input %q requires object storage configuration", path)
	}

	bucket, object, err := splitObjectPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := client.StatObject(ctx, bucket, object, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("failed to stat input object %q: %w", path, err)
	}

	reader, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch input object %q: %w", path, err)
	}
	return reader, nil
}

// splitObjectPath splits "s3://bucket/key/with/slashes" into its parts.
func splitObjectPath(path string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(path, objectScheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid object path %q, want s3://bucket/key", path)
	}
	return parts[0], parts[1], nil
}
