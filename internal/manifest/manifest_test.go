package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVSIXManifest = `<?xml version="1.0" encoding="utf-8"?>
<PackageManifest Version="2.0.0" xmlns="http://schemas.microsoft.com/developer/vsx-schema/2011" xmlns:d="http://schemas.microsoft.com/developer/vsx-schema-design/2011">
  <Metadata>
    <Identity Language="en-US" Id="python" Version="2023.6.1" Publisher="ms-python" />
    <DisplayName>Python</DisplayName>
    <Description xml:space="preserve">Python language support</Description>
  </Metadata>
  <Installation>
    <InstallationTarget Id="Microsoft.VisualStudio.Code"/>
  </Installation>
</PackageManifest>
`

func TestParseExtension(t *testing.T) {
	ext, err := ParseExtension([]byte(`{
		"name": " tool ",
		"publisher": "acme",
		"version": "1.2.3",
		"displayName": "Acme Tool",
		"engines": {"vscode": "^1.80.0", "node": ">=18"},
		"contributes": {"commands": []}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "tool", ext.Name)
	assert.Equal(t, "acme.tool", ext.Identifier())
	assert.Equal(t, "1.2.3", ext.Version)
	assert.Equal(t, "Acme Tool", ext.DisplayName)
	assert.Equal(t, "^1.80.0", ext.EngineRange())
}

func TestParseExtension_Invalid(t *testing.T) {
	_, err := ParseExtension([]byte(`{"name": `))
	assert.Error(t, err)
}

func TestExtensionIdentifier_NoPublisher(t *testing.T) {
	ext := &Extension{Name: "tool"}
	assert.Equal(t, "tool", ext.Identifier())
	assert.Empty(t, ext.EngineRange())
}

func TestParseVSIXManifest(t *testing.T) {
	pkg, err := ParseVSIXManifest([]byte(sampleVSIXManifest))
	require.NoError(t, err)

	assert.Equal(t, "ms-python.python", pkg.Identifier())
	assert.Equal(t, "2023.6.1", pkg.Metadata.Identity.Version)
	assert.Equal(t, "Python", pkg.Metadata.DisplayName)
}

func TestParseVSIXManifest_Invalid(t *testing.T) {
	_, err := ParseVSIXManifest([]byte("<PackageManifest><Metadata>"))
	assert.Error(t, err)
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		id        string
		publisher string
		name      string
	}{
		{"acme.tool", "acme", "tool"},
		{"acme.tool.extra", "acme", "tool.extra"},
		{"tool", "", "tool"},
		{".tool", "", ".tool"},
		{"acme.", "", "acme."},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			pub, name := SplitIdentifier(tt.id)
			assert.Equal(t, tt.publisher, pub)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestSynthesizeExtension(t *testing.T) {
	ext := SynthesizeExtension(Identity{Identifier: "acme.tool", Version: "1.0.0", DisplayName: "Tool"}, "")

	assert.Equal(t, "acme", ext.Publisher)
	assert.Equal(t, "tool", ext.Name)
	assert.Equal(t, "1.0.0", ext.Version)
	assert.Equal(t, DefaultEngineRange, ext.EngineRange())

	data, err := MarshalExtension(ext)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "tool", decoded["name"])
	assert.Equal(t, "Tool", decoded["displayName"])
	assert.NotContains(t, decoded, "description")
}

func TestSynthesizeVSIXManifest_RoundTrip(t *testing.T) {
	ext := SynthesizeExtension(Identity{Identifier: "acme.tool", Version: "2.0.1"}, "^1.99.0")

	data, err := SynthesizeVSIXManifest(ext)
	require.NoError(t, err)
	assert.Contains(t, string(data), `xmlns="http://schemas.microsoft.com/developer/vsx-schema/2011"`)

	pkg, err := ParseVSIXManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "acme.tool", pkg.Identifier())
	assert.Equal(t, "2.0.1", pkg.Metadata.Identity.Version)
	assert.Equal(t, "tool", pkg.Metadata.DisplayName)
}

func TestValidateEngineRange(t *testing.T) {
	for _, r := range []string{"*", "^1.99.0", ">=1.80.0 <2.0.0", "~1.2"} {
		assert.NoError(t, ValidateEngineRange(r), r)
	}
	assert.Error(t, ValidateEngineRange("not a range"))
}

func TestPatchEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), PackageJSON)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "name": "tool",
  "publisher": "acme",
  "version": "1.0.0",
  "engines": {"vscode": "^1.50.0", "node": ">=18"},
  "main": "./out/extension.js"
}`), 0o644))

	previous, err := PatchEngine(path, "^1.99.0")
	require.NoError(t, err)
	assert.Equal(t, "^1.50.0", previous)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Main    string            `json:"main"`
		Engines map[string]string `json:"engines"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "./out/extension.js", doc.Main)
	assert.Equal(t, "^1.99.0", doc.Engines["vscode"])
	assert.Equal(t, ">=18", doc.Engines["node"])
}

func TestPatchEngine_NoEngines(t *testing.T) {
	path := filepath.Join(t.TempDir(), PackageJSON)
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"tool","version":"1.0.0"}`), 0o644))

	previous, err := PatchEngine(path, "*")
	require.NoError(t, err)
	assert.Empty(t, previous)

	ext, err := ReadExtension(path)
	require.NoError(t, err)
	assert.Equal(t, "*", ext.EngineRange())
}

func TestPatchEngine_RejectsInvalidRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), PackageJSON)
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"tool"}`), 0o644))

	_, err := PatchEngine(path, "bogus range")
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"tool"}`, string(data))
}
