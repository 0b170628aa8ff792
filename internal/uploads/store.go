// Package uploads stores user-submitted images (avatars and book covers) on
// disk under per-kind bucket directories. Filenames are generated, so
// concurrent uploads never collide and uploaded names never reach the
// filesystem.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions restricts uploads to common image formats.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ErrUnsupportedType is returned for uploads that are not jpg/jpeg/png.
var ErrUnsupportedType = fmt.Errorf("unsupported file type: only jpg, jpeg and png are accepted")

// Store writes uploaded images into a bucket directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the bucket directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the uploaded file under a generated unique filename, keeping
// the original extension, and returns the stored filename.
func (s *Store) Save(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}

	filename := uuid.NewString() + ext

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return filename, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
