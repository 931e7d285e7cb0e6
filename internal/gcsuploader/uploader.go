package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Client is a Cloud Storage client shared by the input source and the
// backup archiver.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client. An empty credentialsFile uses
// Application Default Credentials (gcloud auth application-default login).
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close closes the storage client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
func (c *Client) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	defer func() {
		// Ensure the writer is closed even on early returns
		_ = w.Close()
	}()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	return nil
}

// IsGCSURI reports whether s looks like gs://bucket[/path].
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object path.
// The object path may be empty ("gs://bucket" or "gs://bucket/").
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.xlsx" → "file.xlsx"
func ExtractFilenameFromGCSURI(uri string) string {
	_, object, err := ParseGCSURI(uri)
	if err != nil || object == "" {
		return strings.TrimPrefix(uri, "gs://")
	}
	return path.Base(object)
}
