package metadata

import (
	"path/filepath"
	"regexp"
	"strings"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// archiveSuffixes are stripped from file names before pattern matching.
var archiveSuffixes = []string{".gz", ".vsix", ".zip"}

// Stem returns the base file name without archive suffixes.
func Stem(name string) string {
	stem := filepath.Base(name)
	for _, suffix := range archiveSuffixes {
		if len(stem) > len(suffix) && strings.EqualFold(stem[len(stem)-len(suffix):], suffix) {
			stem = stem[:len(stem)-len(suffix)]
		}
	}
	return stem
}

// FromFilename parses "<identifier>@<version>" or "<identifier>-<version>"
// out of a package file name. It reports false when neither form matches.
func FromFilename(name string) (PackageRef, bool) {
	return parseStem(Stem(name))
}

// FromDirName parses an installed package directory name such as
// "acme.tool-1.2.3".
func FromDirName(name string) (PackageRef, bool) {
	return parseStem(filepath.Base(name))
}

func parseStem(stem string) (PackageRef, bool) {
	if i := strings.LastIndex(stem, "@"); i > 0 && versionPattern.MatchString(stem[i+1:]) {
		return PackageRef{Identifier: stem[:i], Version: stem[i+1:]}.withPublisher(), true
	}

	// The earliest dash followed by a version splits identifier from version,
	// so identifiers may not contain "-<digits>.<digits>.<digits>".
	for i := 1; i < len(stem)-1; i++ {
		if stem[i] == '-' && versionPattern.MatchString(stem[i+1:]) {
			return PackageRef{Identifier: stem[:i], Version: stem[i+1:]}.withPublisher(), true
		}
	}
	return PackageRef{}, false
}
