package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyProvider_StoreAndGet(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())

	key, err := generateKey()
	require.NoError(t, err)
	require.NoError(t, p.StoreKey(key))

	got, err := p.GetKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestFileKeyProvider_GetMissingKeyFails(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	_, err := p.GetKey()
	assert.Error(t, err)
}

func TestFileKeyProvider_StoreRejectsWrongSize(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	assert.Error(t, p.StoreKey([]byte("short")))
}

func TestFileKeyProvider_KeyExists(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	assert.False(t, p.KeyExists())

	key, err := generateKey()
	require.NoError(t, err)
	require.NoError(t, p.StoreKey(key))
	assert.True(t, p.KeyExists())
}

func TestFileKeyProvider_KeyFilePermissions(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())
	key, err := generateKey()
	require.NoError(t, err)
	require.NoError(t, p.StoreKey(key))

	info, err := os.Stat(p.keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileKeyProvider_EnsureGeneratesThenReuses(t *testing.T) {
	p := NewFileKeyProvider(t.TempDir())

	first, err := p.Ensure()
	require.NoError(t, err)
	require.Len(t, first, keyBytes)

	second, err := p.Ensure()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
