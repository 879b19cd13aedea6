package manifest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
)

const (
	vsixSchemaNamespace = "http://schemas.microsoft.com/developer/vsx-schema/2011"
	vsixSchemaVersion   = "2.0.0"
	vscodeTarget        = "Microsoft.VisualStudio.Code"
	vscodeManifestAsset = "Microsoft.VisualStudio.Code.Manifest"
)

// SynthesizeExtension builds a package.json descriptor from an identity.
// The identifier is split on its first dot into publisher and name. An empty
// engineRange falls back to DefaultEngineRange.
func SynthesizeExtension(id Identity, engineRange string) *Extension {
	if engineRange == "" {
		engineRange = DefaultEngineRange
	}
	publisher, name := SplitIdentifier(id.Identifier)
	return &Extension{
		Name:        name,
		Publisher:   publisher,
		Version:     id.Version,
		DisplayName: id.DisplayName,
		Engines:     map[string]string{EngineKey: engineRange},
	}
}

// MarshalExtension encodes a descriptor as indented JSON with a trailing newline.
func MarshalExtension(ext *Extension) ([]byte, error) {
	data, err := json.MarshalIndent(ext, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", PackageJSON, err)
	}
	return append(data, '\n'), nil
}

type vsixDocument struct {
	XMLName      xml.Name         `xml:"PackageManifest"`
	Version      string           `xml:"Version,attr"`
	Xmlns        string           `xml:"xmlns,attr"`
	Metadata     VSIXMetadata     `xml:"Metadata"`
	Installation vsixInstallation `xml:"Installation"`
	Dependencies struct{}         `xml:"Dependencies"`
	Assets       vsixAssetList    `xml:"Assets"`
}

type vsixInstallation struct {
	Target struct {
		ID string `xml:"Id,attr"`
	} `xml:"InstallationTarget"`
}

type vsixAssetList struct {
	Assets []vsixAsset `xml:"Asset"`
}

type vsixAsset struct {
	Type        string `xml:"Type,attr"`
	Path        string `xml:"Path,attr"`
	Addressable bool   `xml:"Addressable,attr"`
}

// SynthesizeVSIXManifest renders a minimal extension.vsixmanifest from a
// package.json descriptor.
func SynthesizeVSIXManifest(ext *Extension) ([]byte, error) {
	doc := vsixDocument{
		Version: vsixSchemaVersion,
		Xmlns:   vsixSchemaNamespace,
		Metadata: VSIXMetadata{
			Identity: VSIXIdentity{
				ID:        ext.Name,
				Version:   ext.Version,
				Publisher: ext.Publisher,
				Language:  "en-US",
			},
			DisplayName: ext.DisplayName,
			Description: ext.Description,
		},
		Assets: vsixAssetList{Assets: []vsixAsset{{
			Type:        vscodeManifestAsset,
			Path:        "extension/" + PackageJSON,
			Addressable: true,
		}}},
	}
	if doc.Metadata.DisplayName == "" {
		doc.Metadata.DisplayName = ext.Name
	}
	doc.Installation.Target.ID = vscodeTarget

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", VSIXManifest, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
