package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkPackageDir(t *testing.T, root, name, packageJSON string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if packageJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(packageJSON), 0o644))
	}
}

func TestRebuild(t *testing.T) {
	root := t.TempDir()
	mkPackageDir(t, root, "zeta.last-1.0.0", `{"name":"last","publisher":"zeta","version":"1.0.0"}`)
	mkPackageDir(t, root, "acme.tool-1.2.0", `{"name":"tool","publisher":"acme","version":"1.2.0"}`)
	mkPackageDir(t, root, "acme.tool-1.10.0", `{"name":"tool","publisher":"acme","version":"1.10.0"}`)
	mkPackageDir(t, root, "Beta.Widget-0.1.0", "")
	mkPackageDir(t, root, "acme.native-2.0.0-linux-x64", `{"name":"native","publisher":"acme","version":"2.0.0"}`)
	mkPackageDir(t, root, ".obsolete", "")
	mkPackageDir(t, root, "node_modules", "")
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("[]"), 0o644))

	res, err := Rebuild(root)
	require.NoError(t, err)

	var ids, versions []string
	for _, e := range res.Entries {
		ids = append(ids, e.Identifier)
		versions = append(versions, e.Version)
	}
	assert.Equal(t, []string{"acme.tool", "Beta.Widget", "zeta.last"}, ids)
	assert.Equal(t, []string{"1.10.0", "0.1.0", "1.0.0"}, versions)
	assert.Equal(t, []string{".obsolete", "acme.native-2.0.0-linux-x64", "node_modules"}, res.Skipped)

	tool := res.Entries[0]
	assert.Equal(t, "acme.tool-1.10.0", tool.RelativeLocation)
	assert.True(t, filepath.IsAbs(tool.LocationPath))
}

func TestRebuild_MissingDir(t *testing.T) {
	_, err := Rebuild(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
