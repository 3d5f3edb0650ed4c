package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store writes uploaded images under a base directory and hands back the
// URL paths they are served from.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Save writes one uploaded file under a fresh uuid name, keeping the original
// extension, and returns its serving path ("/uploads/<name>").
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + filepath.Ext(fh.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("saving %s: %w", fh.Filename, err)
	}
	return "/uploads/" + name, nil
}

// SaveAll stores the files in order, returning their serving paths.
func (s *Store) SaveAll(fhs []*multipart.FileHeader) ([]string, error) {
	var paths []string
	for _, fh := range fhs {
		p, err := s.Save(fh)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Remove deletes previously stored files by their serving paths. Missing
// files are ignored.
func (s *Store) Remove(paths []string) {
	for _, p := range paths {
		name := filepath.Base(p)
		if name == "." || name == "/" {
			continue
		}
		os.Remove(filepath.Join(s.dir, name))
	}
}

// Dir is the directory files are written to, for serving via http.FileServer.
func (s *Store) Dir() string {
	return s.dir
}
