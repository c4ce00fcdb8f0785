package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "uploads"), filepath.Join(dir, "results"))
	require.NoError(t, err)
	return s
}

func TestSaveUploadSanitizesName(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveUpload("job-1", "../../etc/pass wd.pdf", strings.NewReader("content"))
	require.NoError(t, err)

	assert.Equal(t, "job-1_pass_wd.pdf", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Remove(filepath.Join(t.TempDir(), "nope.pdf")))
	assert.NoError(t, s.Remove(""))
}

func TestResolveResult(t *testing.T) {
	s := newTestStore(t)

	out := s.ResultPath("job-1")
	require.NoError(t, os.WriteFile(out, []byte("mp3"), 0o644))

	path, err := s.ResolveResult("job-1.mp3")
	require.NoError(t, err)
	assert.Equal(t, out, path)

	_, err = s.ResolveResult("../secrets.txt")
	assert.Error(t, err)

	_, err = s.ResolveResult("missing.mp3")
	assert.Error(t, err)
}
