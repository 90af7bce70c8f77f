package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"user", "ada", "Password", "hunter2", "access_token", "abc", "dangling"})
	assert.Equal(t, []interface{}{"user", "ada", "Password", "[REDACTED]", "access_token", "[REDACTED]", "dangling"}, got)
}

func TestNewWithFileSink(t *testing.T) {
	l, err := New(Options{Mode: "production", File: filepath.Join(t.TempDir(), "examd.log")})
	require.NoError(t, err)
	l.With("component", "test").Info("hello", "n", 1)
	l.Sync()
}

func TestNop(t *testing.T) {
	Nop().Error("ignored", "k", "v")
}
