// Package storage resolves import input sources. Inputs are usually
// local files, but teams keeping their import sheets in a bucket can
// pass an s3://bucket/key path, fetched through a Minio client with
// strict transport timeouts.
package storage
