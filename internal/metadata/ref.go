package metadata

import (
	"strings"

	"github.com/x31337/extsync/internal/manifest"
)

// DefaultVersion is assigned when no version can be determined.
const DefaultVersion = "1.0.0"

// PackageRef identifies one package. Identifiers compare case-insensitively.
type PackageRef struct {
	Identifier  string `json:"identifier" yaml:"identifier"`
	Version     string `json:"version" yaml:"version"`
	Publisher   string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
}

// Key returns the identity used for lookups and deduplication.
func (r PackageRef) Key() string {
	return Key(r.Identifier)
}

// Key normalizes an identifier for case-insensitive comparison.
func Key(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// DirName returns the install directory name, "<identifier>-<version>".
func (r PackageRef) DirName() string {
	return r.Identifier + "-" + r.Version
}

// Safe reports whether the identifier and version can form a single path
// component below the target directory.
func (r PackageRef) Safe() bool {
	return safeComponent(r.Identifier) && safeComponent(r.Version)
}

func safeComponent(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// sanitizeComponent replaces path separators and NUL with "_".
func sanitizeComponent(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		s = "_" + s
	}
	return s
}

// Identity converts the reference for descriptor synthesis.
func (r PackageRef) Identity() manifest.Identity {
	return manifest.Identity{
		Identifier:  r.Identifier,
		Version:     r.Version,
		DisplayName: r.DisplayName,
	}
}

func (r PackageRef) String() string {
	return r.Identifier + "@" + r.Version
}

// withPublisher fills Publisher and Name from a dotted identifier when the
// publisher is unknown.
func (r PackageRef) withPublisher() PackageRef {
	if r.Publisher != "" {
		if r.Name == "" {
			r.Name = strings.TrimPrefix(r.Identifier, r.Publisher+".")
		}
		return r
	}
	pub, name := manifest.SplitIdentifier(r.Identifier)
	if pub == "" {
		if r.Name == "" {
			r.Name = r.Identifier
		}
		return r
	}
	r.Publisher = pub
	r.Name = name
	r.Identifier = pub + "." + name
	return r
}
