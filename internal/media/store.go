package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cliquepay/cliqued/internal/ident"
)

// UploadResult describes an already-stored file. It is what the external
// storage collaborator hands back after persisting the bytes.
type UploadResult struct {
	Location    string `json:"location"`
	ContentType string `json:"content_type"`
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// UploadStore persists uploaded bytes and reports where they ended up.
type UploadStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (*UploadResult, error)
}

// DiskStore keeps uploads on the local filesystem under a base directory.
type DiskStore struct {
	dir string
	ids ident.Generator
}

// NewDiskStore constructs a DiskStore rooted at dir.
func NewDiskStore(dir string, ids ident.Generator) (*DiskStore, error) {
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return nil, fmt.Errorf("media: create dir: %w", errMkdir)
	}
	return &DiskStore{dir: dir, ids: ids}, nil
}

// Save writes the upload to disk under a generated name. The original
// extension is kept so that file servers can infer the type.
func (s *DiskStore) Save(_ context.Context, name, contentType string, r io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(name))
	fileName := s.ids.NewID() + ext
	path := filepath.Join(s.dir, fileName)

	out, errCreate := os.Create(path)
	if errCreate != nil {
		return nil, fmt.Errorf("media: create file: %w", errCreate)
	}
	size, errCopy := io.Copy(out, r)
	if errClose := out.Close(); errCopy == nil {
		errCopy = errClose
	}
	if errCopy != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("media: write file: %w", errCopy)
	}

	return &UploadResult{
		Location:    "/media/" + fileName,
		ContentType: contentType,
		Name:        name,
		Size:        size,
	}, nil
}
