package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format selects how a plan or run summary is rendered.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Summary holds per-action counts.
type Summary struct {
	Install int `json:"install" yaml:"install"`
	Update  int `json:"update" yaml:"update"`
	Skip    int `json:"skip" yaml:"skip"`
	Total   int `json:"total" yaml:"total"`
}

// Summary returns the plan's counts.
func (p *Plan) Summary() Summary {
	return Summary{
		Install: len(p.ToInstall),
		Update:  len(p.ToUpdate),
		Skip:    len(p.ToSkip),
		Total:   p.Total(),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("install=%s update=%s skip=%s", Count(s.Install), Count(s.Update), Count(s.Skip))
}

type itemView struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Version    string `json:"version" yaml:"version"`
	Installed  string `json:"installed,omitempty" yaml:"installed,omitempty"`
	Path       string `json:"path" yaml:"path"`
}

type planView struct {
	Summary Summary    `json:"summary" yaml:"summary"`
	Install []itemView `json:"install" yaml:"install"`
	Update  []itemView `json:"update" yaml:"update"`
	Skip    []itemView `json:"skip" yaml:"skip"`
}

func views(items []Item) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, itemView{
			Identifier: it.Package.Ref.Identifier,
			Version:    it.Package.Ref.Version,
			Installed:  it.InstalledVersion(),
			Path:       it.Package.Path,
		})
	}
	return out
}

// Marshal renders the plan in the given format.
func (p *Plan) Marshal(format Format) ([]byte, error) {
	view := planView{
		Summary: p.Summary(),
		Install: views(p.ToInstall),
		Update:  views(p.ToUpdate),
		Skip:    views(p.ToSkip),
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding plan: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(view)
		if err != nil {
			return nil, fmt.Errorf("encoding plan: %w", err)
		}
		return data, nil
	default:
		var buf bytes.Buffer
		Print(&buf, p)
		return buf.Bytes(), nil
	}
}

// Print writes a human-readable plan.
func Print(w io.Writer, p *Plan) {
	fmt.Fprintf(w, "Planning sync of %s %s...\n", Count(p.Total()), pluralize("package", p.Total()))
	fmt.Fprintln(w)

	printSection(w, "Install", p.ToInstall, func(it Item) string {
		return fmt.Sprintf("+ %s %s", it.Package.Ref.Identifier, it.Package.Ref.Version)
	})
	printSection(w, "Update", p.ToUpdate, func(it Item) string {
		return fmt.Sprintf("↑ %s %s → %s", it.Package.Ref.Identifier, it.InstalledVersion(), it.Package.Ref.Version)
	})
	printSection(w, "Skip", p.ToSkip, func(it Item) string {
		return fmt.Sprintf("= %s %s (installed %s)", it.Package.Ref.Identifier, it.Package.Ref.Version, it.InstalledVersion())
	})

	s := p.Summary()
	var parts []string
	for _, c := range []struct {
		verb  string
		count int
	}{{"install", s.Install}, {"update", s.Update}, {"skip", s.Skip}} {
		if c.count > 0 {
			parts = append(parts, fmt.Sprintf("%s %s %s", c.verb, Count(c.count), pluralize("package", c.count)))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "  Nothing to do.")
	} else {
		fmt.Fprintf(w, "  Will %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}

func printSection(w io.Writer, title string, items []Item, line func(Item) string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s (%s):\n", title, Count(len(items)))
	for _, it := range items {
		fmt.Fprintf(w, "    %s\n", line(it))
	}
	fmt.Fprintln(w)
}

// pluralize returns noun in plural form when n != 1.
func pluralize(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
