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
	"go.uber.org/zap"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestLocalPutGetDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	content := "signed contract body"
	err := s.Put(ctx, "contract/c1/abc.txt", strings.NewReader(content), int64(len(content)), "text/plain")
	require.NoError(t, err)

	rc, err := s.Get(ctx, "contract/c1/abc.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, string(got))

	require.NoError(t, s.Delete(ctx, "contract/c1/abc.txt"))
	_, err = s.Get(ctx, "contract/c1/abc.txt")
	assert.Error(t, err)

	// Deleting again is fine.
	assert.NoError(t, s.Delete(ctx, "contract/c1/abc.txt"))
}

func TestLocalPutOverwrites(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.txt", strings.NewReader("one"), 3, "text/plain"))
	require.NoError(t, s.Put(ctx, "k.txt", strings.NewReader("two"), 3, "text/plain"))

	rc, err := s.Get(ctx, "k.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(got))
}

func TestLocalRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "uploads"), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	outside := filepath.Join(dir, "escape.txt")
	keys := []string{
		"../escape.txt",
		"a/../../escape.txt",
		"/etc/passwd",
		"a//b.txt",
		"",
	}
	for _, key := range keys {
		err := s.Put(ctx, key, strings.NewReader("x"), 1, "text/plain")
		assert.Error(t, err, "key %q", key)
	}
	_, err = os.Stat(outside)
	assert.True(t, os.IsNotExist(err))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, validateKey("contract/c1/file.pdf"))
	assert.Error(t, validateKey("./file.pdf"))
	assert.Error(t, validateKey("a/./b"))
}
