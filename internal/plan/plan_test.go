package plan

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/x31337/extsync/internal/metadata"
	"github.com/x31337/extsync/internal/registry"
	"github.com/x31337/extsync/internal/source"
)

type fakeRegistry map[string]*registry.Entry

func (f fakeRegistry) Find(id string) (*registry.Entry, bool) {
	e, ok := f[metadata.Key(id)]
	return e, ok
}

func installed(entries ...*registry.Entry) fakeRegistry {
	f := fakeRegistry{}
	for _, e := range entries {
		f[e.Key()] = e
	}
	return f
}

func pkg(id, ver string) source.Package {
	return source.Package{
		Path: "/src/" + id + "-" + ver + ".vsix",
		Ref:  metadata.PackageRef{Identifier: id, Version: ver},
	}
}

func entry(id, ver string) *registry.Entry {
	return &registry.Entry{Identifier: id, Version: ver}
}

func ids(items []Item) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.Package.Ref.Identifier)
	}
	return out
}

func TestBuild(t *testing.T) {
	reg := installed(
		entry("acme.same", "1.0.0"),
		entry("acme.older", "1.2.0"),
		entry("acme.newer", "2.0.0"),
		entry("Acme.Case", "0.1.0"),
	)
	p := Build([]source.Package{
		pkg("acme.fresh", "1.0.0"),
		pkg("acme.same", "1.0.0"),
		pkg("acme.older", "1.10.0"),
		pkg("acme.newer", "1.9.9"),
		pkg("acme.case", "0.2.0"),
	}, reg)

	assert.Equal(t, []string{"acme.fresh"}, ids(p.ToInstall))
	assert.Equal(t, []string{"acme.older", "acme.case"}, ids(p.ToUpdate))
	assert.Equal(t, []string{"acme.same", "acme.newer"}, ids(p.ToSkip))
	assert.Equal(t, "1.2.0", p.ToUpdate[0].InstalledVersion())
	assert.Empty(t, p.ToInstall[0].InstalledVersion())

	assert.Equal(t, Summary{Install: 1, Update: 2, Skip: 2, Total: 5}, p.Summary())
	assert.False(t, p.Empty())

	work := p.Work()
	require.Len(t, work, 3)
	assert.Equal(t, ActionInstall, work[0].Action)
	assert.Equal(t, ActionUpdate, work[1].Action)
	assert.Equal(t, "acme.older", work[1].Package.Ref.Identifier)
}

func TestBuild_EqualVersionsSkip(t *testing.T) {
	p := Build([]source.Package{pkg("acme.tool", "1.0")}, installed(entry("acme.tool", "1.0.0")))
	assert.True(t, p.Empty())
	assert.Equal(t, []string{"acme.tool"}, ids(p.ToSkip))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	p := Build([]source.Package{pkg("acme.fresh", "1.0.0"), pkg("acme.old", "2.0.0")}, installed(entry("acme.old", "1.0.0")))

	data, err := p.Marshal(FormatJSON)
	require.NoError(t, err)
	var fromJSON planView
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, 1, fromJSON.Summary.Install)
	assert.Equal(t, "1.0.0", fromJSON.Update[0].Installed)
	assert.Empty(t, fromJSON.Skip)

	data, err = p.Marshal(FormatYAML)
	require.NoError(t, err)
	var fromYAML planView
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, fromJSON.Summary, fromYAML.Summary)
	assert.Equal(t, "acme.fresh", fromYAML.Install[0].Identifier)

	data, err = p.Marshal(FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(data), "+ acme.fresh 1.0.0")
}

func TestPrint(t *testing.T) {
	p := Build([]source.Package{
		pkg("acme.fresh", "1.0.0"),
		pkg("acme.old", "2.0.0"),
		pkg("acme.same", "3.0.0"),
	}, installed(entry("acme.old", "1.0.0"), entry("acme.same", "3.0.0")))

	var buf bytes.Buffer
	Print(&buf, p)
	out := buf.String()

	assert.Contains(t, out, "Planning sync of 3 packages...")
	assert.Contains(t, out, "Install (1):")
	assert.Contains(t, out, "↑ acme.old 1.0.0 → 2.0.0")
	assert.Contains(t, out, "= acme.same 3.0.0 (installed 3.0.0)")
	assert.Contains(t, out, "Will install 1 package, update 1 package, skip 1 package")
}

func TestPrint_NothingToDo(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, Build(nil, installed()))
	assert.Contains(t, buf.String(), "Nothing to do.")
}

func TestCount(t *testing.T) {
	assert.Equal(t, "1,234", Count(1234))
	assert.Equal(t, "7", Count(7))
}
