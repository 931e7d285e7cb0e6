package gcsuploader

import (
	"context"
)

// ObjectStore provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// Download returns the bytes of an object.
	Download(ctx context.Context, bucketName, objectName string) ([]byte, error)

	// List returns the names of the objects under prefix, in lexical order.
	List(ctx context.Context, bucketName, prefix string) ([]string, error)
}

// Ensure Client implements ObjectStore interface.
var _ ObjectStore = (*Client)(nil)
