package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// Download returns the bytes of bucketName/objectName.
func (c *Client) Download(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	r, err := c.client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object %s/%s: %w", bucketName, objectName, err)
	}

	return data, nil
}

// FetchFromGCS downloads the object at a gs:// URI through store.
func FetchFromGCS(ctx context.Context, store ObjectStore, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}
	if object == "" || strings.HasSuffix(object, "/") {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return store.Download(ctx, bucket, object)
}

// List returns the object names under prefix.
func (c *Client) List(ctx context.Context, bucketName, prefix string) ([]string, error) {
	it := c.client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucketName, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}
