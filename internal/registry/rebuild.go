package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/x31337/extsync/internal/manifest"
	"github.com/x31337/extsync/internal/metadata"
	"github.com/x31337/extsync/internal/version"
)

// platformSuffix matches directories that carry a platform-specific build,
// e.g. "acme.tool-1.0.0-linux-x64".
var platformSuffix = regexp.MustCompile(`-(linux|darwin|win32|alpine|web)-(x64|arm64|armhf|ia32)$`)

// RebuildResult lists the entries recovered from an extensions directory.
type RebuildResult struct {
	Entries []*Entry
	Skipped []string
}

// Rebuild scans the package directories under targetDir and returns one
// entry per identifier, keeping the highest version, sorted by identifier.
func Rebuild(targetDir string) (*RebuildResult, error) {
	dirents, err := os.ReadDir(targetDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", targetDir, err)
	}

	abs, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", targetDir, err)
	}

	res := &RebuildResult{}
	best := map[string]*Entry{}

	for _, d := range dirents {
		name := d.Name()
		if !d.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".") || platformSuffix.MatchString(name) {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		dir := filepath.Join(abs, name)
		ref, ok := identify(dir)
		if !ok {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		e := NewEntry(ref, dir)
		if cur, seen := best[e.Key()]; seen && !version.Newer(e.Version, cur.Version) {
			continue
		}
		best[e.Key()] = e
	}

	for _, e := range best {
		res.Entries = append(res.Entries, e)
	}
	sort.Slice(res.Entries, func(i, j int) bool {
		return res.Entries[i].Key() < res.Entries[j].Key()
	})
	sort.Strings(res.Skipped)
	return res, nil
}

// identify reads a package directory's package.json, falling back to the
// directory name.
func identify(dir string) (metadata.PackageRef, bool) {
	fromName, nameOK := metadata.FromDirName(dir)

	ext, err := manifest.ReadExtension(filepath.Join(dir, manifest.PackageJSON))
	if err != nil || ext.Name == "" || ext.Publisher == "" {
		return fromName, nameOK
	}

	ref := metadata.PackageRef{
		Identifier:  ext.Identifier(),
		Version:     ext.Version,
		Publisher:   ext.Publisher,
		Name:        ext.Name,
		DisplayName: ext.DisplayName,
	}
	if ref.Version == "" {
		if !nameOK {
			return metadata.PackageRef{}, false
		}
		ref.Version = fromName.Version
	}
	return ref, true
}
