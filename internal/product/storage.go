package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ridefuture-be/internal/utils"

	"github.com/google/uuid"
)

const galleryDir = "product_gallery"

// MediaStore persists uploaded files under relative, slash-separated paths.
type MediaStore interface {
	Save(ctx context.Context, relPath string, r io.Reader) error
	Remove(relPath string) error
	// RemoveDirIfEmpty removes relDir only when it has no entries left.
	RemoveDirIfEmpty(relDir string) error
	RemoveAll(relDir string) error
	URL(relPath string) string
}

// GalleryPath builds product_gallery/<product-slug>/<unique-name>.
func GalleryPath(productSlug, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := utils.Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}
	unique := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return path.Join(galleryDir, productSlug, fmt.Sprintf("%s-%s%s", stem, unique, ext))
}

func GalleryDir(productSlug string) string {
	return path.Join(galleryDir, productSlug)
}

type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore stores files below root and serves them from baseURL + "/media/".
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) abs(relPath string) (string, error) {
	clean := path.Clean("/" + relPath)
	if clean == "/" {
		return "", errors.New("empty media path")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Save(ctx context.Context, relPath string, r io.Reader) error {
	dst, err := s.abs(relPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write media file: %w", err)
	}
	return f.Close()
}

func (s *LocalStore) Remove(relPath string) error {
	p, err := s.abs(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) RemoveDirIfEmpty(relDir string) error {
	p, err := s.abs(relDir)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(p)
}

func (s *LocalStore) RemoveAll(relDir string) error {
	p, err := s.abs(relDir)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

func (s *LocalStore) URL(relPath string) string {
	return s.baseURL + "/media/" + strings.TrimLeft(relPath, "/")
}
