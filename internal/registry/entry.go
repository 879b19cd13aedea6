package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/x31337/extsync/internal/metadata"
)

const fileScheme = "file"

// Entry is one installed package in the registry. Fields the sync engine does
// not model are kept as raw JSON and written back unchanged.
type Entry struct {
	Identifier       string
	Version          string
	LocationPath     string
	RelativeLocation string

	extra           map[string]json.RawMessage
	identifierExtra map[string]json.RawMessage
	locationExtra   map[string]json.RawMessage
}

// NewEntry builds an entry for a package installed at dir.
func NewEntry(ref metadata.PackageRef, dir string) *Entry {
	return &Entry{
		Identifier:       ref.Identifier,
		Version:          ref.Version,
		LocationPath:     dir,
		RelativeLocation: filepath.Base(dir),
	}
}

// Key returns the case-insensitive identity of the entry.
func (e *Entry) Key() string {
	return metadata.Key(e.Identifier)
}

// InheritOpaque copies fields this package does not model, such as the
// marketplace uuid and install metadata, from prev.
func (e *Entry) InheritOpaque(prev *Entry) *Entry {
	if prev == nil {
		return e
	}
	e.extra = cloneRaw(prev.extra)
	e.identifierExtra = cloneRaw(prev.identifierExtra)
	return e
}

// Opaque returns the raw value of an unmodeled top-level entry field.
func (e *Entry) Opaque(key string) (json.RawMessage, bool) {
	v, ok := e.extra[key]
	return v, ok
}

// MarshalJSON writes the editor's extensions.json entry shape.
func (e *Entry) MarshalJSON() ([]byte, error) {
	id := newObject(e.identifierExtra)
	id.set("id", e.Identifier)

	loc := newObject(e.locationExtra)
	if _, ok := e.locationExtra["$mid"]; !ok {
		loc.set("$mid", 1)
	}
	loc.set("path", e.LocationPath)
	if _, ok := e.locationExtra["scheme"]; !ok {
		loc.set("scheme", fileScheme)
	}

	out := newObject(e.extra)
	out.setRaw("identifier", id.bytes())
	out.set("version", e.Version)
	if e.LocationPath != "" || len(e.locationExtra) > 0 {
		out.setRaw("location", loc.bytes())
	}
	if e.RelativeLocation != "" {
		out.set("relativeLocation", e.RelativeLocation)
	}
	return out.bytes(), out.err
}

// UnmarshalJSON reads an entry, keeping unknown fields.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var identifier map[string]json.RawMessage
	if err := json.Unmarshal(raw["identifier"], &identifier); err != nil {
		return fmt.Errorf("entry identifier: %w", err)
	}
	if err := json.Unmarshal(identifier["id"], &e.Identifier); err != nil {
		return fmt.Errorf("entry identifier id: %w", err)
	}
	delete(identifier, "id")
	delete(raw, "identifier")

	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &e.Version); err != nil {
			return fmt.Errorf("entry %s version: %w", e.Identifier, err)
		}
		delete(raw, "version")
	}

	if v, ok := raw["location"]; ok {
		var location map[string]json.RawMessage
		if err := json.Unmarshal(v, &location); err != nil {
			return fmt.Errorf("entry %s location: %w", e.Identifier, err)
		}
		if p, ok := location["path"]; ok {
			if err := json.Unmarshal(p, &e.LocationPath); err != nil {
				return fmt.Errorf("entry %s location path: %w", e.Identifier, err)
			}
			delete(location, "path")
		}
		e.locationExtra = nonEmpty(location)
		delete(raw, "location")
	}

	if v, ok := raw["relativeLocation"]; ok {
		if err := json.Unmarshal(v, &e.RelativeLocation); err != nil {
			return fmt.Errorf("entry %s relativeLocation: %w", e.Identifier, err)
		}
		delete(raw, "relativeLocation")
	}

	e.identifierExtra = nonEmpty(identifier)
	e.extra = nonEmpty(raw)
	return nil
}

// object assembles a JSON object with known keys first, in insertion order,
// followed by opaque keys in sorted order.
type object struct {
	keys   []string
	values map[string]json.RawMessage
	opaque map[string]json.RawMessage
	err    error
}

func newObject(opaque map[string]json.RawMessage) *object {
	return &object{values: map[string]json.RawMessage{}, opaque: opaque}
}

func (o *object) set(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil && o.err == nil {
		o.err = err
	}
	o.setRaw(key, data)
}

func (o *object) setRaw(key string, data json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = data
}

func (o *object) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(k string, v json.RawMessage) {
		if n > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
		n++
	}
	for _, k := range o.keys {
		write(k, o.values[k])
	}
	rest := make([]string, 0, len(o.opaque))
	for k := range o.opaque {
		if _, known := o.values[k]; !known {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		write(k, o.opaque[k])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func nonEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}
