package mediacache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore holds downloaded media until released.
type BlobStore interface {
	Put(r io.Reader) (path string, size int64, err error)
	Release(path string) error
}

// DirBlobs stores each blob as a uuid-named file under Dir.
type DirBlobs struct {
	Dir string
}

// NewDirBlobs creates dir if needed. An empty dir uses a fresh temp directory.
func NewDirBlobs(dir string) (*DirBlobs, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "scrollbet-media-")
		if err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
		return &DirBlobs{Dir: d}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DirBlobs{Dir: dir}, nil
}

// Put copies r into a new blob file.
func (b *DirBlobs) Put(r io.Reader) (string, int64, error) {
	path := filepath.Join(b.Dir, uuid.NewString()+".media")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// Release deletes a blob. Releasing an unknown or already released path is not an error.
func (b *DirBlobs) Release(path string) error {
	if !strings.HasPrefix(path, b.Dir) {
		return fmt.Errorf("blob %s outside %s", path, b.Dir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes the directory and everything in it.
func (b *DirBlobs) RemoveAll() error {
	return os.RemoveAll(b.Dir)
}
