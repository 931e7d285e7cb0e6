package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvloznov/expense-tracker/internal/gcsuploader"
)

// Source lists and reads candidate export files.
type Source interface {
	// List returns the names of the files in the source, in lexical order.
	List(ctx context.Context) ([]string, error)

	// Open returns the content of a file returned by List.
	Open(ctx context.Context, name string) ([]byte, error)

	// String describes the source for logs.
	String() string
}

// DirSource reads exports from a local directory. A directory that does not
// exist lists as empty.
type DirSource struct {
	Dir string
}

// List implements Source.
func (s DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("DirSource.List: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open implements Source.
func (s DirSource) Open(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("DirSource.Open: %w", err)
	}
	return data, nil
}

func (s DirSource) String() string { return s.Dir }

// GCSSource reads exports stored under a Cloud Storage prefix. Objects in
// nested "folders" below the prefix are ignored.
type GCSSource struct {
	Store  gcsuploader.ObjectStore
	Bucket string
	Prefix string
}

// List implements Source. Names are returned relative to the prefix.
func (s GCSSource) List(ctx context.Context) ([]string, error) {
	prefix := s.dirPrefix()
	objects, err := s.Store.List(ctx, s.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("GCSSource.List: %w", err)
	}

	var names []string
	for _, object := range objects {
		name := strings.TrimPrefix(object, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Open implements Source.
func (s GCSSource) Open(ctx context.Context, name string) ([]byte, error) {
	data, err := gcsuploader.FetchFromGCS(ctx, s.Store, s.URI(name))
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Open: %w", err)
	}
	return data, nil
}

// URI returns the gs:// location of a file returned by List.
func (s GCSSource) URI(name string) string {
	return "gs://" + s.Bucket + "/" + s.dirPrefix() + name
}

func (s GCSSource) String() string {
	return "gs://" + path.Join(s.Bucket, s.Prefix)
}

func (s GCSSource) dirPrefix() string {
	p := strings.Trim(s.Prefix, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// NewSource picks the source for location: a gs:// URI is read through store,
// anything else is a local directory.
func NewSource(location string, store gcsuploader.ObjectStore) (Source, error) {
	if !gcsuploader.IsGCSURI(location) {
		return DirSource{Dir: location}, nil
	}
	bucket, prefix, err := gcsuploader.ParseGCSURI(location)
	if err != nil {
		return nil, fmt.Errorf("NewSource: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("NewSource: %s needs a storage client", location)
	}
	return GCSSource{Store: store, Bucket: bucket, Prefix: prefix}, nil
}
