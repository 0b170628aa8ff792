package uploads

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFileHeader builds a real multipart.FileHeader the way gin receives it.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "avatars")

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_Save(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := makeFileHeader(t, "Portrait.PNG", []byte("fake image bytes"))

	filename, err := store.Save(header)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"), "extension preserved and lowercased: %s", filename)
	assert.NotEqual(t, "Portrait.PNG", filename, "uploaded name must not be reused")

	stored, err := os.ReadFile(filepath.Join(store.Dir(), filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image bytes"), stored)
}

func TestStore_Save_UniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := makeFileHeader(t, "cover.jpg", []byte("image"))

	first, err := store.Save(header)
	require.NoError(t, err)
	second, err := store.Save(header)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStore_Save_RejectsUnsupportedType(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := makeFileHeader(t, "notes.txt", []byte("plain text"))

	_, err = store.Save(header)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStore_Remove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := makeFileHeader(t, "avatar.jpeg", []byte("image"))
	filename, err := store.Save(header)
	require.NoError(t, err)

	require.NoError(t, store.Remove(filename))
	_, err = os.Stat(filepath.Join(store.Dir(), filename))
	assert.True(t, os.IsNotExist(err))

	// Removing again, or removing nothing, is not an error
	assert.NoError(t, store.Remove(filename))
	assert.NoError(t, store.Remove(""))
}
