package storage_test

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examhall/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	key, err := s.Put("exams/1/notes.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "exams/1/notes.pdf", key)
	assert.Equal(t, "/uploads/exams/1/notes.pdf", s.URL(key))

	back, ok := s.KeyFromURL(s.URL(key))
	require.True(t, ok)
	assert.Equal(t, key, back)
	_, ok = s.KeyFromURL("https://elsewhere/x")
	assert.False(t, ok)

	rc, err := s.Get(key)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Delete(key))
	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir(), "")
	require.NoError(t, err)
	for _, key := range []string{"", "../etc/passwd", "a/../../b", "a/./b", "."} {
		_, err := s.Put(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}
