package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore is the capability the item service needs from image
// storage. The record store only ever holds the returned reference, so
// the backend is swappable (and fakeable in tests).
type BlobStore interface {
	// Save stores the blob and returns the generated reference.
	Save(r io.Reader, originalName string) (string, error)
	// Remove deletes the blob. Removing an unknown reference is not an error.
	Remove(ref string) error
	// URL returns the public path the blob is served under.
	URL(ref string) string
}

// LocalBlobStore writes blobs to a flat directory and serves them under
// baseURL. References are uuid filenames keeping the upload's extension.
type LocalBlobStore struct {
	dir     string
	baseURL string
}

func NewLocalBlobStore(dir, baseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalBlobStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory blobs live in, for static file serving.
func (s *LocalBlobStore) Dir() string {
	return s.dir
}

func (s *LocalBlobStore) Save(r io.Reader, originalName string) (string, error) {
	ref := uuid.NewString() + filepath.Ext(originalName)

	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return ref, nil
}

func (s *LocalBlobStore) Remove(ref string) error {
	// Base() keeps a stored reference from escaping the upload dir.
	err := os.Remove(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalBlobStore) URL(ref string) string {
	return s.baseURL + "/" + filepath.Base(ref)
}
