package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gymflow/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskPictureStore_Save(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewDiskPictureStore(root)
	require.NoError(t, err)

	path, err := store.Save("avatar.PNG", []byte("png-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "profile_pictures/"))
	assert.True(t, strings.HasSuffix(path, ".png"), "extension is kept, lowercased")

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)

	// Two uploads of the same filename never collide.
	other, err := store.Save("avatar.PNG", []byte("other-bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestDiskPictureStore_Rejects(t *testing.T) {
	store, err := storage.NewDiskPictureStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("malware.exe", []byte("nope"))
	assert.Error(t, err)

	_, err = store.Save("empty.png", nil)
	assert.Error(t, err)

	_, err = store.Save("huge.png", make([]byte, storage.MaxPictureSize+1))
	assert.Error(t, err)
}
