package product

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGalleryPath(t *testing.T) {
	p := GalleryPath("city-scooter", "My Photo.JPG")

	assert.True(t, strings.HasPrefix(p, "product_gallery/city-scooter/my-photo-"))
	assert.True(t, strings.HasSuffix(p, ".jpg"))

	traversal := GalleryPath("city-scooter", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(traversal, "product_gallery/city-scooter/passwd-"))

	windows := GalleryPath("x", `C:\Users\me\pic.png`)
	assert.True(t, strings.HasPrefix(windows, "product_gallery/x/pic-"))
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8000/")
	ctx := context.Background()

	rel := "product_gallery/bike/a.png"
	require.NoError(t, store.Save(ctx, rel, strings.NewReader("png-bytes")))

	data, err := os.ReadFile(filepath.Join(root, "product_gallery", "bike", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, "http://localhost:8000/media/product_gallery/bike/a.png", store.URL(rel))

	t.Run("RemoveDirIfEmpty keeps non-empty dir", func(t *testing.T) {
		require.NoError(t, store.RemoveDirIfEmpty("product_gallery/bike"))
		assert.DirExists(t, filepath.Join(root, "product_gallery", "bike"))
	})

	t.Run("Remove then prune", func(t *testing.T) {
		require.NoError(t, store.Remove(rel))
		require.NoError(t, store.Remove(rel), "removing a missing file is not an error")
		require.NoError(t, store.RemoveDirIfEmpty("product_gallery/bike"))
		assert.NoDirExists(t, filepath.Join(root, "product_gallery", "bike"))
	})

	t.Run("Paths cannot escape root", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "../../escape.txt", strings.NewReader("x")))
		assert.FileExists(t, filepath.Join(root, "escape.txt"))
	})

	t.Run("RemoveAll", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "product_gallery/car/1.png", strings.NewReader("1")))
		require.NoError(t, store.Save(ctx, "product_gallery/car/2.png", strings.NewReader("2")))
		require.NoError(t, store.RemoveAll("product_gallery/car"))
		assert.NoDirExists(t, filepath.Join(root, "product_gallery", "car"))
	})
}
