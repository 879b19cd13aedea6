package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/x31337/extsync/internal/metadata"
)

// DefaultPattern selects package archives anywhere below the source root.
const DefaultPattern = "**/*.vsix"

var (
	// ErrSourceDirectoryMissing is returned when the source root does not
	// exist or is not a directory.
	ErrSourceDirectoryMissing = errors.New("source directory does not exist")
	// ErrNoPackagesFound is returned when no file below the source root
	// matches the pattern.
	ErrNoPackagesFound = errors.New("no packages found")
)

// Package is a package archive found in the source directory.
type Package struct {
	Path string
	Ref  metadata.PackageRef
}

// Duplicate records a source archive dropped because another archive with
// the same identifier sorts after it.
type Duplicate struct {
	Identifier string
	Kept       string
	Dropped    string
}

// Inventory is the result of a source scan.
type Inventory struct {
	Root       string
	Packages   []Package
	Duplicates []Duplicate
	// Filtered counts packages excluded by the allow-list.
	Filtered int
}

// Options control a scan.
type Options struct {
	// Pattern is a doublestar glob matched against slash-separated paths
	// relative to the root. Empty means DefaultPattern.
	Pattern string
	// Only restricts the inventory to these identifiers, compared
	// case-insensitively. Empty means every package.
	Only []string
	// Workers bounds concurrent metadata extraction. Zero means GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

// Scan walks root, identifies every matching archive and resolves duplicate
// identifiers in favor of the lexicographically later path.
func Scan(ctx context.Context, root string, opts Options) (*Inventory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid source pattern %q", pattern)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceDirectoryMissing, root)
	}

	paths, err := walk(ctx, root, pattern, logger)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s matching %s", ErrNoPackagesFound, root, pattern)
	}
	logger.Debug("source archives found", "root", root, "count", len(paths))

	refs, err := identifyAll(ctx, paths, opts.Workers)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{Root: root}
	allow := allowSet(opts.Only)
	index := map[string]int{}

	for i, p := range paths {
		ref := refs[i]
		key := ref.Key()
		if allow != nil && !allow[key] {
			inv.Filtered++
			continue
		}

		if at, seen := index[key]; seen {
			prev := inv.Packages[at]
			logger.Warn("duplicate package in source", "id", ref.Identifier, "kept", p, "dropped", prev.Path)
			inv.Duplicates = append(inv.Duplicates, Duplicate{
				Identifier: ref.Identifier,
				Kept:       p,
				Dropped:    prev.Path,
			})
			inv.Packages[at] = Package{Path: p, Ref: ref}
			continue
		}
		index[key] = len(inv.Packages)
		inv.Packages = append(inv.Packages, Package{Path: p, Ref: ref})
	}

	return inv, nil
}

// walk returns the sorted absolute paths of regular files matching pattern.
// Symlinks to regular files are included under the link's own path; links to
// directories are not descended into.
func walk(ctx context.Context, root, pattern string, logger *log.Logger) ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}
		link := d.Type()&os.ModeSymlink != 0
		if !link && !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		matched, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil || !matched {
			return nil
		}

		if link {
			info, err := os.Stat(p)
			if err != nil {
				logger.Debug("skipping unresolvable symlink", "path", p, "err", err)
				return nil
			}
			if !info.Mode().IsRegular() {
				logger.Debug("skipping symlink to non-regular file", "path", p, "mode", info.Mode().String())
				return nil
			}
		}

		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// identifyAll extracts metadata for every path concurrently, preserving order.
func identifyAll(ctx context.Context, paths []string, workers int) ([]metadata.PackageRef, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	refs := make([]metadata.PackageRef, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs[i] = metadata.Extract(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func allowSet(only []string) map[string]bool {
	var set map[string]bool
	for _, id := range only {
		for _, part := range strings.Split(id, ",") {
			key := metadata.Key(part)
			if key == "" {
				continue
			}
			if set == nil {
				set = map[string]bool{}
			}
			set[key] = true
		}
	}
	return set
}
