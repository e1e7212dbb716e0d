package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemRoundTrip(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "incidences/5/photo.jpg", strings.NewReader("jpegbytes"), "image/jpeg"))

	body, err := fs.Get(ctx, "incidences/5/photo.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "jpegbytes", string(data))

	require.NoError(t, fs.Delete(ctx, "incidences/5/photo.jpg"))
	_, err = fs.Get(ctx, "incidences/5/photo.jpg")
	assert.Error(t, err)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"../escape", "a/../../escape", "/etc/passwd", "."} {
		t.Run(key, func(t *testing.T) {
			err := fs.Put(ctx, key, strings.NewReader("x"), "")
			assert.Error(t, err)
		})
	}

	// Nothing may exist outside the root.
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemDeleteMissingIsNoop(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, fs.Delete(context.Background(), "reports/1/gone.csv"))
}

func TestFilesystemRequiresRoot(t *testing.T) {
	_, err := NewFilesystem("")
	assert.Error(t, err)
}
