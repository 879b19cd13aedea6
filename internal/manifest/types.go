package manifest

import "strings"

// File names used inside extension packages.
const (
	PackageJSON        = "package.json"
	VSIXManifest       = "extension.vsixmanifest"
	InstalledManifest  = ".vsixmanifest"
	ExtensionDir       = "extension"
	EngineKey          = "vscode"
	DefaultEngineRange = "*"
)

// Extension holds the package.json fields the sync engine reads.
type Extension struct {
	Name        string            `json:"name"`
	Publisher   string            `json:"publisher,omitempty"`
	Version     string            `json:"version"`
	DisplayName string            `json:"displayName,omitempty"`
	Description string            `json:"description,omitempty"`
	Engines     map[string]string `json:"engines,omitempty"`
}

// Identifier returns publisher.name, or just name when the publisher is empty.
func (e *Extension) Identifier() string {
	if e.Publisher == "" {
		return e.Name
	}
	return e.Publisher + "." + e.Name
}

// EngineRange returns the declared vscode engine range, if any.
func (e *Extension) EngineRange() string {
	if e.Engines == nil {
		return ""
	}
	return e.Engines[EngineKey]
}

// Identity is the minimal identity needed to synthesize descriptors for a
// package that does not carry its own.
type Identity struct {
	Identifier  string
	Version     string
	DisplayName string
}

// SplitIdentifier splits "publisher.name" on the first dot. An identifier
// without a dot yields an empty publisher.
func SplitIdentifier(id string) (publisher, name string) {
	if i := strings.Index(id, "."); i > 0 && i < len(id)-1 {
		return id[:i], id[i+1:]
	}
	return "", id
}
