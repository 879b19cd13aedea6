package manifest

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// ParseExtension decodes a package.json document.
func ParseExtension(data []byte) (*Extension, error) {
	var ext Extension
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", PackageJSON, err)
	}
	ext.Name = strings.TrimSpace(ext.Name)
	ext.Publisher = strings.TrimSpace(ext.Publisher)
	ext.Version = strings.TrimSpace(ext.Version)
	return &ext, nil
}

// ReadExtension reads and decodes the package.json file at path.
func ReadExtension(path string) (*Extension, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseExtension(data)
}

// VSIXPackage is the subset of extension.vsixmanifest the sync engine reads.
type VSIXPackage struct {
	XMLName  xml.Name     `xml:"PackageManifest"`
	Metadata VSIXMetadata `xml:"Metadata"`
}

// VSIXMetadata is the Metadata element of a vsixmanifest.
type VSIXMetadata struct {
	Identity    VSIXIdentity `xml:"Identity"`
	DisplayName string       `xml:"DisplayName"`
	Description string       `xml:"Description"`
}

// VSIXIdentity carries the Identity element attributes.
type VSIXIdentity struct {
	ID        string `xml:"Id,attr"`
	Version   string `xml:"Version,attr"`
	Publisher string `xml:"Publisher,attr"`
	Language  string `xml:"Language,attr,omitempty"`
}

// Identifier returns Publisher.Id, or Id alone when no publisher is declared.
func (p *VSIXPackage) Identifier() string {
	id := strings.TrimSpace(p.Metadata.Identity.ID)
	pub := strings.TrimSpace(p.Metadata.Identity.Publisher)
	if pub == "" {
		return id
	}
	return pub + "." + id
}

// ParseVSIXManifest decodes an extension.vsixmanifest document.
func ParseVSIXManifest(data []byte) (*VSIXPackage, error) {
	var pkg VSIXPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", VSIXManifest, err)
	}
	return &pkg, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
