package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Archiver copies the workbooks written by a run to a backup bucket.
// Objects are named <prefix>/<YYYY-MM-DD>/<run-id>/<file name>.
type Archiver struct {
	store  ObjectStore
	bucket string
	prefix string
	now    func() time.Time
}

// NewArchiver creates an Archiver writing to bucket under prefix.
func NewArchiver(store ObjectStore, bucket, prefix string) *Archiver {
	return &Archiver{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// ObjectName returns the backup object name of localPath for runID.
func (a *Archiver) ObjectName(runID, localPath string) string {
	return path.Join(a.prefix, a.now().UTC().Format("2006-01-02"), runID, filepath.Base(localPath))
}

// Archive uploads every path and returns the gs:// URIs written. It stops at
// the first failed upload.
func (a *Archiver) Archive(ctx context.Context, runID string, paths ...string) ([]string, error) {
	uris := make([]string, 0, len(paths))
	for _, p := range paths {
		object := a.ObjectName(runID, p)
		if err := a.store.UploadFile(ctx, a.bucket, object, p); err != nil {
			return uris, fmt.Errorf("Archive: %s: %w", p, err)
		}
		uris = append(uris, fmt.Sprintf("gs://%s/%s", a.bucket, object))
	}
	return uris, nil
}
