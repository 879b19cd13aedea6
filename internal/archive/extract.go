package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/x31337/extsync/internal/manifest"
)

// Extraction stages reported in ExtractionError.Op.
const (
	OpOpen       = "open"
	OpStage      = "stage"
	OpUnpack     = "unpack"
	OpNormalize  = "normalize"
	OpPatch      = "patch-engine"
	OpCommit     = "commit"
	OpCancel     = "cancel"
	stagePattern = ".extsync-*"
)

// ErrUnsafePath is returned for archive members that would land outside the
// extraction root.
var ErrUnsafePath = errors.New("archive member escapes extraction root")

// ErrUnsafeTarget is returned when a package directory name is not a single
// path component below the target directory.
var ErrUnsafeTarget = errors.New("package directory escapes target directory")

// TargetDir returns the install directory for name below root. name must be
// exactly one path component; anything that would resolve elsewhere is
// rejected with ErrUnsafeTarget.
func TargetDir(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafeTarget)
	}
	dir := filepath.Join(root, name)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel != name {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafeTarget)
	}
	return dir, nil
}

// ExtractionError describes a failed extraction of one package.
type ExtractionError struct {
	Path string
	Op   string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Options tune manifest normalization during extraction.
type Options struct {
	// EngineRange is written to engines.vscode of synthesized descriptors.
	EngineRange string
	// EngineOverride, when set, replaces engines.vscode in the final descriptor.
	EngineOverride string
}

// Extracted describes a completed extraction.
type Extracted struct {
	Dir                     string
	Gzipped                 bool
	Files                   int
	SkippedSymlinks         int
	Promoted                bool
	SynthesizedPackageJSON  bool
	SynthesizedVSIXManifest bool
	EnginePatched           bool
	PreviousEngine          string
}

// Extract unpacks the package at path into targetDir and normalizes its
// layout. Work happens in a scratch directory next to targetDir and is moved
// into place with a rename, so targetDir is either fully populated or left
// as it was. An existing targetDir is replaced.
func Extract(ctx context.Context, path, targetDir string, id manifest.Identity, opts Options) (*Extracted, error) {
	fail := func(op string, err error) (*Extracted, error) {
		return nil, &ExtractionError{Path: path, Op: op, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(OpCancel, err)
	}

	payload, err := Open(path)
	if err != nil {
		return fail(OpOpen, err)
	}

	parent := filepath.Dir(targetDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fail(OpStage, fmt.Errorf("creating %s: %w", parent, err))
	}
	scratch, err := os.MkdirTemp(parent, stagePattern)
	if err != nil {
		return fail(OpStage, fmt.Errorf("creating scratch directory: %w", err))
	}
	defer os.RemoveAll(scratch)

	raw := filepath.Join(scratch, "raw")
	res := &Extracted{Dir: targetDir, Gzipped: payload.Gzipped}

	if err := unpack(ctx, payload.Reader, raw, res); err != nil {
		if ctx.Err() != nil {
			return fail(OpCancel, err)
		}
		return fail(OpUnpack, err)
	}

	root, err := normalize(raw, id, opts, res)
	if err != nil {
		return fail(OpNormalize, err)
	}

	if opts.EngineOverride != "" {
		prev, err := manifest.PatchEngine(filepath.Join(root, manifest.PackageJSON), opts.EngineOverride)
		if err != nil {
			return fail(OpPatch, err)
		}
		res.EnginePatched = true
		res.PreviousEngine = prev
	}

	if err := commit(root, targetDir, scratch); err != nil {
		return fail(OpCommit, err)
	}
	return res, nil
}

// unpack writes every regular member of zr below dest.
func unpack(ctx context.Context, zr *zip.Reader, dest string, res *Extracted) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	clean := filepath.Clean(dest)
	base := clean + string(os.PathSeparator)
	budget := MaxPayloadBytes

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(dest, filepath.FromSlash(strings.ReplaceAll(f.Name, "\\", "/")))
		if target == clean {
			continue
		}
		if !strings.HasPrefix(target, base) {
			return fmt.Errorf("%s: %w", f.Name, ErrUnsafePath)
		}

		mode := f.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			res.SkippedSymlinks++
			continue
		case f.FileInfo().IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		case !mode.IsRegular():
			continue
		}

		n, err := writeMember(f, target, min(budget, MaxMemberBytes))
		if err != nil {
			return err
		}
		budget -= n
		res.Files++
	}
	return nil
}

// writeMember copies f to target, writing at most limit bytes.
func writeMember(f *zip.File, target string, limit int64) (int64, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return 0, fmt.Errorf("%s: %w (%d bytes)", f.Name, ErrTooLarge, limit)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0o200)
	if err != nil {
		return 0, err
	}
	// The header size is not trusted; the copy itself stops one byte past limit.
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		dst.Close()
		return n, fmt.Errorf("writing %s: %w", f.Name, err)
	}
	if n > limit {
		dst.Close()
		return n, fmt.Errorf("%s: %w (%d bytes)", f.Name, ErrTooLarge, limit)
	}
	return n, dst.Close()
}

// normalize turns the unpacked tree into an installable package root and
// returns that root.
func normalize(raw string, id manifest.Identity, opts Options, res *Extracted) (string, error) {
	root := raw
	if isDir(filepath.Join(raw, manifest.ExtensionDir)) {
		root = filepath.Join(raw, manifest.ExtensionDir)
		res.Promoted = true
	}

	pkgPath := filepath.Join(root, manifest.PackageJSON)
	var ext *manifest.Extension
	if isFile(pkgPath) {
		parsed, err := manifest.ReadExtension(pkgPath)
		if err == nil {
			ext = parsed
		}
	} else {
		ext = manifest.SynthesizeExtension(id, opts.EngineRange)
		data, err := manifest.MarshalExtension(ext)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(pkgPath, data, 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", manifest.PackageJSON, err)
		}
		res.SynthesizedPackageJSON = true
	}

	installed := filepath.Join(root, manifest.InstalledManifest)
	if isFile(installed) {
		return root, nil
	}

	if shipped := filepath.Join(raw, manifest.VSIXManifest); isFile(shipped) {
		if err := copyFile(shipped, installed); err != nil {
			return "", fmt.Errorf("copying %s: %w", manifest.VSIXManifest, err)
		}
		return root, nil
	}

	if ext == nil {
		// The shipped package.json is unreadable; describe the package by identity.
		ext = manifest.SynthesizeExtension(id, opts.EngineRange)
	}
	data, err := manifest.SynthesizeVSIXManifest(ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(installed, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", manifest.InstalledManifest, err)
	}
	res.SynthesizedVSIXManifest = true
	return root, nil
}

// commit renames root onto targetDir. An existing targetDir is first moved
// into scratch and restored if the final rename fails.
func commit(root, targetDir, scratch string) error {
	var aside string
	if _, err := os.Lstat(targetDir); err == nil {
		aside = filepath.Join(scratch, "previous")
		if err := os.Rename(targetDir, aside); err != nil {
			return fmt.Errorf("moving existing %s aside: %w", targetDir, err)
		}
	}

	if err := os.Rename(root, targetDir); err != nil {
		if aside != "" {
			if rerr := os.Rename(aside, targetDir); rerr != nil {
				return errors.Join(fmt.Errorf("installing into %s: %w", targetDir, err), rerr)
			}
		}
		return fmt.Errorf("installing into %s: %w", targetDir, err)
	}
	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, srcInfo.Mode())
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
