package testutil

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// EncodePNG returns img encoded as PNG.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	return data
}

// WritePNG writes img to path, creating parent directories.
func WritePNG(t testing.TB, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, EncodePNG(t, img), 0o600))
}
