package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_WriteCreatesParents(t *testing.T) {
	fsys := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "params", "nested", "hotspot.json")

	require.NoError(t, fsys.WriteFile(path, []byte(`{"eps":0.01}`), 0o644))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"eps":0.01}`, string(data))
	assert.True(t, IsRegularFile(fsys, path))
	assert.False(t, IsRegularFile(fsys, filepath.Dir(path)))
}

func TestOSFileSystem_ReadMissing(t *testing.T) {
	_, err := OSFileSystem{}.ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("/data/reports.json", []byte("[]"), 0o644))

	data, err := m.ReadFile("/data/../data/reports.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	info, err := m.Stat("/data/reports.json")
	require.NoError(t, err)
	assert.Equal(t, "reports.json", info.Name())
	assert.Equal(t, int64(2), info.Size())
	assert.False(t, info.IsDir())

	dir, err := m.Stat("/data")
	require.NoError(t, err)
	assert.True(t, dir.IsDir())
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	src := []byte("original")
	require.NoError(t, m.WriteFile("f.txt", src, 0o644))
	src[0] = 'X'

	got, err := m.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, err := m.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(again))
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = m.Stat("nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, IsRegularFile(m, "nope"))
}

func TestMemoryFileSystem_WriteOverDirectory(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("a/b.txt", nil, 0o644))

	err := m.WriteFile("a", []byte("x"), 0o644)
	assert.True(t, errors.Is(err, fs.ErrExist))
}
