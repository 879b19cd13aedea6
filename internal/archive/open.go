package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

const gzipMIME = "application/gzip"

// Size limits applied while decompressing. Variables so tests can lower them.
var (
	// MaxPayloadBytes caps the inflated size of a gzip-wrapped archive and
	// the total bytes written by one extraction.
	MaxPayloadBytes int64 = 1 << 30
	// MaxMemberBytes caps a single archive member.
	MaxMemberBytes int64 = 512 << 20
)

// ErrTooLarge is returned when decompressed data exceeds a size limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// Payload is an opened package archive. Gzip-wrapped archives are already
// decompressed.
type Payload struct {
	Reader  *zip.Reader
	Gzipped bool
	// Detected is the content type sniffed from the file on disk.
	Detected string

	index map[string]*zip.File
}

// Open reads the archive at path and returns a zip reader over its contents.
// A gzip wrapper is detected from the leading magic bytes, not the file name.
func Open(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", path, err)
	}
	return OpenBytes(data)
}

// OpenBytes is Open for an archive already held in memory.
func OpenBytes(data []byte) (*Payload, error) {
	mtype := mimetype.Detect(data)
	p := &Payload{Detected: mtype.String()}

	if mtype.Is(gzipMIME) {
		inflated, err := gunzip(data)
		if err != nil {
			return nil, err
		}
		data = inflated
		p.Gzipped = true
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		// Member names are checked again during extraction.
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading zip payload (detected %s): %w", p.Detected, err)
	}
	p.Reader = zr

	p.index = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		p.index[cleanName(f.Name)] = f
	}
	return p, nil
}

// Has reports whether the archive contains a file with the given name.
func (p *Payload) Has(name string) bool {
	f, ok := p.index[cleanName(name)]
	return ok && !f.FileInfo().IsDir()
}

// ReadFile returns the contents of the named archive member.
func (p *Payload) ReadFile(name string) ([]byte, error) {
	f, ok := p.index[cleanName(name)]
	if !ok || f.FileInfo().IsDir() {
		return nil, fmt.Errorf("archive member %s: %w", name, os.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening archive member %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxMemberBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading archive member %s: %w", name, err)
	}
	if int64(len(data)) > MaxMemberBytes {
		return nil, fmt.Errorf("archive member %s: %w (%d bytes)", name, ErrTooLarge, MaxMemberBytes)
	}
	return data, nil
}

func gunzip(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	out, err := io.ReadAll(io.LimitReader(gz, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip stream: %w", err)
	}
	if int64(len(out)) > MaxPayloadBytes {
		return nil, fmt.Errorf("decompressing gzip stream: %w (%d bytes)", ErrTooLarge, MaxPayloadBytes)
	}
	return out, nil
}

// cleanName normalizes a member name to slash form without a leading "./" or "/".
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
