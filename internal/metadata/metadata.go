package metadata

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/x31337/extsync/internal/archive"
	"github.com/x31337/extsync/internal/manifest"
)

// descriptorPaths are checked in order for a package.json inside an archive.
var descriptorPaths = []string{
	manifest.ExtensionDir + "/" + manifest.PackageJSON,
	manifest.PackageJSON,
}

// Extract determines the identity of the package archive at path. It never
// fails: manifest fields win, the file name fills gaps, and as a last resort
// the file stem becomes the identifier with DefaultVersion. Identities that
// cannot be used as a directory name are never returned.
func Extract(path string) PackageRef {
	fromName, nameOK := FromFilename(path)
	if nameOK && !fromName.Safe() {
		nameOK = false
	}

	ref, ok := fromArchive(path)
	if ok && !ref.Safe() {
		log.Warn("ignoring package manifest identity with path characters",
			"path", path, "id", ref.Identifier, "version", ref.Version)
		ok = false
	}
	switch {
	case ok:
		if ref.Version == "" && nameOK {
			ref.Version = fromName.Version
		}
		if ref.DisplayName == "" && nameOK {
			ref.DisplayName = fromName.DisplayName
		}
	case nameOK:
		ref = fromName
	default:
		log.Debug("package metadata unresolvable, using file stem", "path", path)
		ref = PackageRef{Identifier: Stem(path)}
	}

	if ref.Version == "" {
		ref.Version = DefaultVersion
	}
	ref = ref.withPublisher()
	if !ref.Safe() {
		ref = PackageRef{
			Identifier: sanitizeComponent(ref.Identifier),
			Version:    sanitizeComponent(ref.Version),
		}.withPublisher()
	}
	return ref
}

// fromArchive reads the identity embedded in the archive, preferring
// package.json over extension.vsixmanifest.
func fromArchive(path string) (PackageRef, bool) {
	payload, err := archive.Open(path)
	if err != nil {
		log.Debug("cannot open package for metadata", "path", path, "err", err)
		return PackageRef{}, false
	}

	for _, name := range descriptorPaths {
		if !payload.Has(name) {
			continue
		}
		data, err := payload.ReadFile(name)
		if err != nil {
			log.Debug("reading descriptor", "path", path, "member", name, "err", err)
			continue
		}
		ext, err := manifest.ParseExtension(data)
		if err != nil || ext.Name == "" {
			log.Debug("unusable descriptor", "path", path, "member", name, "err", err)
			continue
		}
		return PackageRef{
			Identifier:  ext.Identifier(),
			Version:     ext.Version,
			Publisher:   ext.Publisher,
			Name:        ext.Name,
			DisplayName: ext.DisplayName,
		}, true
	}

	if payload.Has(manifest.VSIXManifest) {
		data, err := payload.ReadFile(manifest.VSIXManifest)
		if err == nil {
			pkg, perr := manifest.ParseVSIXManifest(data)
			if perr == nil && strings.TrimSpace(pkg.Metadata.Identity.ID) != "" {
				id := pkg.Metadata.Identity
				return PackageRef{
					Identifier:  pkg.Identifier(),
					Version:     strings.TrimSpace(id.Version),
					Publisher:   strings.TrimSpace(id.Publisher),
					Name:        strings.TrimSpace(id.ID),
					DisplayName: strings.TrimSpace(pkg.Metadata.DisplayName),
				}, true
			}
			err = perr
		}
		log.Debug("unusable vsixmanifest", "path", path, "err", err)
	}
	return PackageRef{}, false
}
