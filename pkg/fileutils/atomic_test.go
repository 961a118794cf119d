package fileutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	tests := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{name: "request record", data: []byte(`{"authReqId":"auth-1"}`), perm: 0o600},
		{name: "empty data", data: []byte{}, perm: 0o600},
		{name: "large data", data: []byte(strings.Repeat("x", 10000)), perm: 0o644},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			target := filepath.Join(tempDir, tt.name+".json")

			require.NoError(t, AtomicWriteFile(target, tt.data, tt.perm))

			content, err := os.ReadFile(target)
			require.NoError(t, err)
			assert.Equal(t, tt.data, content)

			info, err := os.Stat(target)
			require.NoError(t, err)
			assert.Equal(t, tt.perm, info.Mode().Perm())
		})
	}
}

func TestAtomicWriteFile_OverwriteTruncates(t *testing.T) {
	target := filepath.Join(t.TempDir(), "auth-1.json")

	require.NoError(t, AtomicWriteFile(target, []byte(`{"outcome":"approved","userId":"user-123"}`), 0o600))
	require.NoError(t, AtomicWriteFile(target, []byte(`{"outcome":"denied"}`), 0o600))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"outcome":"denied"}`, string(content))
}

func TestAtomicWriteFile_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AtomicWriteFile(filepath.Join(dir, "auth-1.json"), []byte(`{}`), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, IsTempFile(entries[0].Name()))
}

func TestAtomicWriteFile_MissingDirectory(t *testing.T) {
	err := AtomicWriteFile(filepath.Join(t.TempDir(), "missing", "auth-1.json"), []byte(`{}`), 0o600)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create temp file")
}

func TestWriteTemp(t *testing.T) {
	dir := t.TempDir()

	tmp, err := WriteTemp(dir, "auth-1.json", []byte(`{"outcome":"approved"}`), 0o640)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(tmp))
	assert.True(t, IsTempFile(filepath.Base(tmp)))
	content, err := os.ReadFile(tmp)
	require.NoError(t, err)
	assert.Equal(t, `{"outcome":"approved"}`, string(content))
	info, err := os.Stat(tmp)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestIsTempFile(t *testing.T) {
	assert.True(t, IsTempFile(".tmp-auth-1.json-123"))
	assert.False(t, IsTempFile("auth-1.json"))
	assert.False(t, IsTempFile(".tmp"))
}
