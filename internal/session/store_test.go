package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gate_token")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	assert.Empty(t, store.Token(), "fresh store should have no token")

	require.NoError(t, store.SetToken("jwt-abc123"))
	assert.Equal(t, "jwt-abc123", store.Token())

	// A second store on the same path sees the persisted value.
	store2, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc123", store2.Token())

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
	assert.Empty(t, store2.Token())
}

func TestFileStore_clearIsIdempotent(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "gate_token"))
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	assert.Empty(t, store.Token())
	require.NoError(t, store.SetToken("tok"))
	assert.Equal(t, "tok", store.Token())
	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
}
