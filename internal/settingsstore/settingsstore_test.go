package settingsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 8080, s.HTTPPort)
	assert.Equal(t, 8081, s.WebSocketPort)
	assert.True(t, s.AutoConnect)
	assert.False(t, s.AutoConnectScale)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), store.Get())
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"httpPort":9090,"targetWeight":18.5}`), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	s := store.Get()
	assert.Equal(t, 9090, s.HTTPPort)
	assert.Equal(t, 18.5, s.TargetWeight)
	assert.Equal(t, 8081, s.WebSocketPort) // default preserved
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridgeName: kitchen\nautoConnectScale: true\n"), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	s := store.Get()
	assert.Equal(t, "kitchen", s.BridgeName)
	assert.True(t, s.AutoConnectScale)
}

func TestUpdatePersistsAndMergesPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	store, err := Load(path)
	require.NoError(t, err)

	weight := 20.0
	_, err = store.Update(Patch{TargetWeight: &weight})
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	s := reloaded.Get()
	assert.Equal(t, 20.0, s.TargetWeight)
	assert.True(t, s.AutoConnect) // untouched field survives the partial update
}

func TestUpdateWithoutPathDoesNotPersist(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	name := "attic"
	s, err := store.Update(Patch{BridgeName: &name})
	require.NoError(t, err)
	assert.Equal(t, "attic", s.BridgeName)
}
