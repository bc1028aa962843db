package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := NewFileStore(t.TempDir())
	require.NoError(t, src.Set(ctx, "/a.go", sampleMap()))
	require.NoError(t, src.Set(ctx, "/b.go", sampleMap()))
	// Non-storage files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(src.Dir(), "README"), []byte("hi"), 0o644))

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := NewFileStore(filepath.Join(t.TempDir(), "restored"))
	n, err = dst.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, doc := range []string{"/a.go", "/b.go"} {
		got, err := dst.Get(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, sampleMap(), got)
	}
}

func TestArchive_KeepsDamagedBytes(t *testing.T) {
	ctx := context.Background()
	src := NewFileStore(t.TempDir())
	require.NoError(t, os.MkdirAll(src.Dir(), 0o755))
	damaged := []byte{0x7b, 0xff, 0xfe, 0x7d}
	require.NoError(t, os.WriteFile(src.Path("/a.go"), damaged, 0o644))

	var buf bytes.Buffer
	_, err := src.Export(ctx, &buf)
	require.NoError(t, err)

	dst := NewFileStore(t.TempDir())
	_, err = dst.Import(ctx, &buf)
	require.NoError(t, err)

	got, err := os.ReadFile(dst.Path("/a.go"))
	require.NoError(t, err)
	assert.Equal(t, damaged, got)
}

func TestArchive_ExportEmptyDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing"))
	var buf bytes.Buffer
	n, err := s.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestArchive_ImportRejectsPathNames(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"version":1,"files":{"../../etc/passwd":"eA=="}}`))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	s := NewFileStore(t.TempDir())
	_, err = s.Import(context.Background(), &buf)
	require.ErrorContains(t, err, "invalid file name")
}

func TestArchive_ImportRejectsVersion(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"version":9,"files":{}}`))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	s := NewFileStore(t.TempDir())
	_, err = s.Import(context.Background(), &buf)
	require.ErrorContains(t, err, "unsupported archive version")
}
