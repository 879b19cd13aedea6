package source

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x31337/extsync/internal/logging"
)

func writePackage(t *testing.T, path, packageJSON string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if packageJSON != "" {
		w, err := zw.Create("extension/package.json")
		require.NoError(t, err)
		_, err = w.Write([]byte(packageJSON))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func identifiers(inv *Inventory) []string {
	var ids []string
	for _, p := range inv.Packages {
		ids = append(ids, p.Ref.Identifier+"@"+p.Ref.Version)
	}
	return ids
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "acme.tool-1.0.0.vsix"), `{"name":"tool","publisher":"acme","version":"1.0.0"}`)
	writePackage(t, filepath.Join(root, "nested", "deep", "other.ext-2.1.0.vsix"), "")
	writePackage(t, filepath.Join(root, "notes.zip"), "")
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("hi"), 0o644))

	inv, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.tool@1.0.0", "other.ext@2.1.0"}, identifiers(inv))
	assert.Empty(t, inv.Duplicates)
}

func TestScan_DuplicateLaterPathWins(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "a", "acme.tool-1.0.0.vsix"), "")
	writePackage(t, filepath.Join(root, "b", "ACME.tool-0.9.0.vsix"), "")

	inv, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)

	require.Len(t, inv.Packages, 1)
	assert.Equal(t, "0.9.0", inv.Packages[0].Ref.Version)
	assert.Equal(t, filepath.Join(root, "b", "ACME.tool-0.9.0.vsix"), inv.Packages[0].Path)

	require.Len(t, inv.Duplicates, 1)
	assert.Equal(t, filepath.Join(root, "a", "acme.tool-1.0.0.vsix"), inv.Duplicates[0].Dropped)
}

func TestScan_AllowList(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "acme.tool-1.0.0.vsix"), "")
	writePackage(t, filepath.Join(root, "other.ext-2.1.0.vsix"), "")
	writePackage(t, filepath.Join(root, "third.one-3.0.0.vsix"), "")

	inv, err := Scan(context.Background(), root, Options{Only: []string{"ACME.TOOL", "third.one, unknown.id"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.tool@1.0.0", "third.one@3.0.0"}, identifiers(inv))
	assert.Equal(t, 1, inv.Filtered)
}

func TestScan_Pattern(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "top.ext-1.0.0.vsix"), "")
	writePackage(t, filepath.Join(root, "nightly", "n.ext-1.0.0.vsix"), "")

	inv, err := Scan(context.Background(), root, Options{Pattern: "nightly/*.vsix"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n.ext@1.0.0"}, identifiers(inv))

	_, err = Scan(context.Background(), root, Options{Pattern: "[unclosed"})
	assert.Error(t, err)
}

func TestScan_Errors(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, ErrSourceDirectoryMissing)

	file := filepath.Join(t.TempDir(), "file.vsix")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Scan(context.Background(), file, Options{})
	assert.ErrorIs(t, err, ErrSourceDirectoryMissing)

	_, err = Scan(context.Background(), t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNoPackagesFound)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "acme.tool-1.0.0.vsix"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func symlinkOrSkip(t *testing.T, oldname, newname string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	require.NoError(t, os.Symlink(oldname, newname))
}

func TestScan_FollowsSymlinkedPackage(t *testing.T) {
	store := t.TempDir()
	writePackage(t, filepath.Join(store, "acme.linked-1.0.0.vsix"), `{"name":"linked","publisher":"acme","version":"1.0.0"}`)

	root := t.TempDir()
	writePackage(t, filepath.Join(root, "acme.tool-1.0.0.vsix"), "")
	link := filepath.Join(root, "acme.linked-1.0.0.vsix")
	symlinkOrSkip(t, filepath.Join(store, "acme.linked-1.0.0.vsix"), link)

	inv, err := Scan(context.Background(), root, Options{Logger: logging.Discard()})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.linked@1.0.0", "acme.tool@1.0.0"}, identifiers(inv))
	assert.Equal(t, link, inv.Packages[0].Path)
}

func TestScan_SkipsDanglingAndDirectorySymlinks(t *testing.T) {
	outside := t.TempDir()
	writePackage(t, filepath.Join(outside, "pkgs.vsix", "acme.hidden-1.0.0.vsix"), "")

	root := t.TempDir()
	writePackage(t, filepath.Join(root, "acme.tool-1.0.0.vsix"), "")
	symlinkOrSkip(t, filepath.Join(root, "gone.vsix"), filepath.Join(root, "acme.dangling-1.0.0.vsix"))
	symlinkOrSkip(t, filepath.Join(outside, "pkgs.vsix"), filepath.Join(root, "dir.vsix"))

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})

	inv, err := Scan(context.Background(), root, Options{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme.tool@1.0.0"}, identifiers(inv))
	out := logs.String()
	assert.Contains(t, out, "skipping unresolvable symlink")
	assert.Contains(t, out, "skipping symlink to non-regular file")
	assert.Equal(t, 2, strings.Count(out, "skipping"))
}
