package fetcher

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractZIP(t *testing.T) {
	data := buildZIP(t, map[string]string{
		"seoul/gu.shp": "shp",
		"seoul/gu.dbf": "dbf",
		"seoul/gu.shx": "shx",
	})
	zipPath := filepath.Join(t.TempDir(), "gu.zip")
	require.NoError(t, os.WriteFile(zipPath, data, 0o644))

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	got, err := os.ReadFile(filepath.Join(destDir, "seoul", "gu.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(got))
}

func TestExtractZIPBytes_FindByExt(t *testing.T) {
	data := buildZIP(t, map[string]string{
		"b.SHP":    "upper",
		"a.dbf":    "dbf",
		"read.txt": "readme",
	})

	extracted, err := ExtractZIPBytes(data, t.TempDir())
	require.NoError(t, err)

	shpPath, err := FindByExt(extracted, ".shp")
	require.NoError(t, err)
	assert.Equal(t, "b.SHP", filepath.Base(shpPath))

	_, err = FindByExt(extracted, ".geojson")
	require.Error(t, err)
}

func TestExtractZIPBytes_ZipSlip(t *testing.T) {
	data := buildZIP(t, map[string]string{"../evil.txt": "x"})
	_, err := ExtractZIPBytes(data, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIPBytes_NotZip(t *testing.T) {
	_, err := ExtractZIPBytes([]byte("not a zip"), t.TempDir())
	require.Error(t, err)
}
