// ABOUTME: Tests for the embedded BadgerDB backend
// ABOUTME: Covers get/set/delete, missing keys, prefix listing and reopen persistence

package charm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGetSetDelete(t *testing.T) {
	l := NewTestBackend(t)

	_, ok, err := l.Get("clients/1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Set("clients/1", []byte(`{"id":1}`)))
	v, ok, err := l.Get("clients/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(v))

	require.NoError(t, l.Delete("clients/1"))
	_, ok, err = l.Get("clients/1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Delete("clients/404"), "deleting a missing key is not an error")
}

func TestLocalKeysWithPrefix(t *testing.T) {
	l := NewTestBackend(t)

	require.NoError(t, l.Set("clients/1", []byte("a")))
	require.NoError(t, l.Set("clients/2", []byte("b")))
	require.NoError(t, l.Set("client-potentials/3", []byte("c")))
	require.NoError(t, l.Set("tasks/4", []byte("d")))

	keys, err := l.KeysWithPrefix("clients/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clients/1", "clients/2"}, keys)

	require.NoError(t, l.Reset())
	keys, err = l.KeysWithPrefix("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	l, err := OpenLocal(dir)
	require.NoError(t, err)
	require.NoError(t, l.Set("users/1", []byte("jan")))
	require.NoError(t, l.Close())

	l, err = OpenLocal(dir)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	v, ok, err := l.Get("users/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jan", string(v))
}

func TestOpenMemory(t *testing.T) {
	l, err := OpenMemory()
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, l.Set("session/current-user", []byte("{}")))
	_, ok, err := l.Get("session/current-user")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfigDefaults(t *testing.T) {
	var nilCfg *Config
	cfg := nilCfg.withDefaults()
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.True(t, cfg.AutoSync)

	cfg = (&Config{Host: "charm.example.com"}).withDefaults()
	assert.Equal(t, "charm.example.com", cfg.Host)
	assert.False(t, cfg.AutoSync)
}
