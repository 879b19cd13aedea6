package plan

import (
	"github.com/x31337/extsync/internal/registry"
	"github.com/x31337/extsync/internal/source"
	"github.com/x31337/extsync/internal/version"
)

// Action is what the plan does with one package.
type Action string

// Plan actions.
const (
	ActionInstall Action = "install"
	ActionUpdate  Action = "update"
	ActionSkip    Action = "skip"
)

// Lookup finds the installed entry for an identifier.
type Lookup interface {
	Find(identifier string) (*registry.Entry, bool)
}

// Item pairs a source package with its installed entry, if any.
type Item struct {
	Package   source.Package
	Installed *registry.Entry
}

// InstalledVersion returns the installed version or "".
func (it Item) InstalledVersion() string {
	if it.Installed == nil {
		return ""
	}
	return it.Installed.Version
}

// Plan partitions source packages by what a sync would do with them. The
// three lists are disjoint and keep source order.
type Plan struct {
	ToInstall []Item
	ToUpdate  []Item
	ToSkip    []Item
}

// Build compares each package against the installed registry. Packages that
// are not installed are installed, newer ones update, and equal or older ones
// are skipped. Downgrades never happen.
func Build(packages []source.Package, reg Lookup) *Plan {
	p := &Plan{}
	for _, pkg := range packages {
		installed, ok := reg.Find(pkg.Ref.Identifier)
		if !ok {
			p.ToInstall = append(p.ToInstall, Item{Package: pkg})
			continue
		}

		item := Item{Package: pkg, Installed: installed}
		if version.Compare(pkg.Ref.Version, installed.Version) == version.Greater {
			p.ToUpdate = append(p.ToUpdate, item)
		} else {
			p.ToSkip = append(p.ToSkip, item)
		}
	}
	return p
}

// Work returns the items that require extraction, installs first, each
// tagged with its action.
func (p *Plan) Work() []Unit {
	units := make([]Unit, 0, len(p.ToInstall)+len(p.ToUpdate))
	for _, it := range p.ToInstall {
		units = append(units, Unit{Item: it, Action: ActionInstall})
	}
	for _, it := range p.ToUpdate {
		units = append(units, Unit{Item: it, Action: ActionUpdate})
	}
	return units
}

// Unit is one item scheduled for extraction.
type Unit struct {
	Item
	Action Action
}

// Empty reports whether the plan has nothing to install or update.
func (p *Plan) Empty() bool {
	return len(p.ToInstall) == 0 && len(p.ToUpdate) == 0
}

// Total returns the number of packages the plan covers.
func (p *Plan) Total() int {
	return len(p.ToInstall) + len(p.ToUpdate) + len(p.ToSkip)
}
