package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	t.Setenv("EXTSYNC_CONFIG", path)
	return path
}

func TestFilePathOverride(t *testing.T) {
	path := isolate(t)
	assert.Equal(t, path, FilePath())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	require.NoError(t, Load())

	assert.Equal(t, ".", Get(KeySource))
	assert.Equal(t, "**/*.vsix", Get(KeyPattern))
	assert.Equal(t, "*", Get(KeyEngineRange))
	assert.Equal(t, "info", Get(KeyLogLevel))
	assert.Equal(t, runtime.NumCPU(), GetInt(KeyWorkers))
	assert.Equal(t, DefaultTarget(), Get(KeyTarget))
	assert.Equal(t, filepath.Join(DefaultTarget(), "extensions.json"), RegistryPath())
}

func TestEnvironmentOverride(t *testing.T) {
	isolate(t)
	t.Setenv("EXTSYNC_WORKERS", "3")
	t.Setenv("EXTSYNC_ENGINE_RANGE", "^1.80.0")
	require.NoError(t, Load())

	assert.Equal(t, 3, GetInt(KeyWorkers))
	assert.Equal(t, "^1.80.0", Get(KeyEngineRange))
}

func TestRegistryPathExplicit(t *testing.T) {
	isolate(t)
	require.NoError(t, Load())

	viper.Set(KeyTarget, "/srv/ext")
	assert.Equal(t, filepath.Join("/srv/ext", "extensions.json"), RegistryPath())

	viper.Set(KeyRegistry, "/tmp/custom.json")
	assert.Equal(t, "/tmp/custom.json", RegistryPath())
}

func TestSetPersists(t *testing.T) {
	path := isolate(t)
	require.NoError(t, Load())

	require.NoError(t, Set(KeyWorkers, "8"))
	require.NoError(t, Set(KeySource, "/data/vsix"))

	assert.Equal(t, "8", Get(KeyWorkers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers")
	assert.Contains(t, string(data), "/data/vsix")
	assert.NotContains(t, string(data), "pattern", "defaults should not be written")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	viper.Reset()
	require.NoError(t, Load())
	assert.Equal(t, 8, GetInt(KeyWorkers))
	assert.Equal(t, "/data/vsix", Get(KeySource))
}

func TestSetRejects(t *testing.T) {
	isolate(t)
	require.NoError(t, Load())

	err := Set("colour", "blue")
	assert.ErrorIs(t, err, ErrUnknownKey)

	assert.Error(t, Set(KeyWorkers, "0"))
	assert.Error(t, Set(KeyWorkers, "many"))
	assert.Error(t, Set(KeyEngineRange, "not a range"))
	assert.Error(t, Set(KeyLogLevel, "chatty"))

	assert.NoError(t, Set(KeyPatchEngine, ""))
	assert.NoError(t, Set(KeyLogLevel, "debug"))
}

func TestLoadMalformedFile(t *testing.T) {
	path := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("workers: [unterminated"), 0o600))

	assert.Error(t, Load())
}

func TestAllSorted(t *testing.T) {
	isolate(t)
	require.NoError(t, Load())

	all := All()
	require.Len(t, all, len(Keys))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Key, all[i].Key)
	}
}
