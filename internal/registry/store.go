package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/x31337/extsync/internal/platform"
)

// ErrRegistryCorrupt is returned when the registry file exists but is not a
// valid registry document.
var ErrRegistryCorrupt = errors.New("registry file is corrupt")

// FileName is the registry file name inside an extensions directory.
const FileName = "extensions.json"

const extensionsKey = "extensions"

// Shape is the top-level layout of a registry file.
type Shape int

const (
	// ShapeArray is a bare JSON array of entries, the editor's native layout.
	ShapeArray Shape = iota
	// ShapeObject is an object whose "extensions" key holds the entries.
	ShapeObject
)

func (s Shape) String() string {
	if s == ShapeObject {
		return "object"
	}
	return "array"
}

// Store is an in-memory registry loaded from a file. It is not safe for
// concurrent use; callers funnel all mutations through one goroutine.
type Store struct {
	path    string
	shape   Shape
	entries []*Entry
	top     map[string]json.RawMessage
	perm    fs.FileMode

	existed  bool
	dirty    bool
	backedUp string

	now func() time.Time
}

// New returns an empty array-shaped store for path without reading it.
func New(path string) *Store {
	s := &Store{path: path, now: time.Now}
	s.perm, s.existed = platform.FileMode(path, 0o644)
	return s
}

// Load reads the registry at path. A missing file yields an empty registry.
// Invalid JSON or a document that does not match the registry schema returns
// an error wrapping ErrRegistryCorrupt.
func Load(path string) (*Store, error) {
	s := New(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	issues, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryCorrupt, path, err)
	}
	if len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.String())
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrRegistryCorrupt, path, strings.Join(msgs, "; "))
	}

	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryCorrupt, path, err)
	}
	return s, nil
}

func (s *Store) decode(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '[' {
		s.shape = ShapeArray
		return json.Unmarshal(trimmed, &s.entries)
	}

	s.shape = ShapeObject
	if err := json.Unmarshal(trimmed, &s.top); err != nil {
		return err
	}
	if err := json.Unmarshal(s.top[extensionsKey], &s.entries); err != nil {
		return err
	}
	delete(s.top, extensionsKey)
	return nil
}

// Path returns the registry file path.
func (s *Store) Path() string { return s.path }

// Shape returns the layout the registry will be written in.
func (s *Store) Shape() Shape { return s.shape }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Dirty reports whether the store has unpersisted changes.
func (s *Store) Dirty() bool { return s.dirty }

// BackupPath returns the backup written during this session, if any.
func (s *Store) BackupPath() string { return s.backedUp }

// Entries returns the entries in registry order.
func (s *Store) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Find returns the entry for identifier, compared case-insensitively.
func (s *Store) Find(identifier string) (*Entry, bool) {
	key := strings.ToLower(strings.TrimSpace(identifier))
	for _, e := range s.entries {
		if e.Key() == key {
			return e, true
		}
	}
	return nil, false
}

// Upsert removes every entry with the same identifier and appends e.
func (s *Store) Upsert(e *Entry) {
	s.remove(e.Key())
	s.entries = append(s.entries, e)
	s.dirty = true
}

// RemoveByIdentifier removes all entries for identifier and reports whether
// any were present.
func (s *Store) RemoveByIdentifier(identifier string) bool {
	if s.remove(strings.ToLower(strings.TrimSpace(identifier))) {
		s.dirty = true
		return true
	}
	return false
}

// Replace swaps the full entry list.
func (s *Store) Replace(entries []*Entry) {
	s.entries = append([]*Entry(nil), entries...)
	s.dirty = true
}

// SortByIdentifier orders entries by lower-cased identifier.
func (s *Store) SortByIdentifier() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].Key() < s.entries[j].Key()
	})
}

func (s *Store) remove(key string) bool {
	kept := s.entries[:0]
	removed := false
	for _, e := range s.entries {
		if e.Key() == key {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	return removed
}

// Encode renders the registry in the shape it was read in.
func (s *Store) Encode() ([]byte, error) {
	entries := s.entries
	if entries == nil {
		entries = []*Entry{}
	}

	var doc any = entries
	if s.shape == ShapeObject {
		top := make(map[string]any, len(s.top)+1)
		for k, v := range s.top {
			top[k] = v
		}
		top[extensionsKey] = entries
		doc = top
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding registry: %w", err)
	}
	return append(data, '\n'), nil
}
