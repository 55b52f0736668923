package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileService_CreatesKindDirs(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileService(nil, dir)
	require.NoError(t, err)

	for _, kind := range []string{KindQRCode, KindPoster, KindPayment, KindScreenshot} {
		info, err := os.Stat(filepath.Join(dir, kind))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestFileService_DeleteFile(t *testing.T) {
	dir := t.TempDir()

	fs, err := NewFileService(nil, dir)
	require.NoError(t, err)

	path := filepath.Join(dir, KindQRCode, "qr.jpg")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	require.NoError(t, fs.DeleteFile(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// повторное удаление и пустой путь не считаются ошибкой
	assert.NoError(t, fs.DeleteFile(path))
	assert.NoError(t, fs.DeleteFile(""))
}
