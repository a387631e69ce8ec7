package sources

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/xi2/xz"
	"pault.ag/go/debian/control"

	"github.com/wolsen/cmadison/internal/stanza"
)

// maxLineLen bounds the length of a single index line. Binary lists of large
// source packages are long, but nowhere near this.
const maxLineLen = 1024 * 1024

// Stanzas is a single-pass sequence of the stanzas of one index:
//
//	for s.Scan() {
//		p, err := s.Stanza()
//		…
//	}
//	if err := s.Err(); err != nil {
//		…
//	}
//
// The underlying file and decompressor are released when Scan returns false
// or Close is called, whichever comes first.
type Stanzas struct {
	ready   bool
	scanner *bufio.Scanner
	closers []io.Closer

	cur    control.Paragraph
	curErr error
	err    error
}

func empty() *Stanzas {
	return &Stanzas{}
}

// Open returns the stanzas of the (possibly compressed) index at path.
func Open(path string) (*Stanzas, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := decompress(filepath.Ext(path), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newStanzas(r, r, f), nil
}

// NewStanzas returns the stanzas of an uncompressed index read from r.
func NewStanzas(r io.Reader) *Stanzas {
	return newStanzas(r)
}

func newStanzas(r io.Reader, closers ...io.Closer) *Stanzas {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	return &Stanzas{
		ready:   true,
		scanner: scanner,
		closers: closers,
	}
}

func decompress(ext string, r io.Reader) (io.ReadCloser, error) {
	switch ext {
	case ".gz":
		return gzip.NewReader(r)
	case ".xz":
		xzr, err := xz.NewReader(r, 0)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xzr), nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

// Ready reports whether the index was available. A Stanzas that is not
// ready yields no stanzas.
func (s *Stanzas) Ready() bool {
	return s.ready
}

// Scan advances to the next stanza. Stanzas are separated by lines that are
// empty or contain only whitespace.
func (s *Stanzas) Scan() bool {
	if s.scanner == nil || s.err != nil {
		return false
	}
	var block strings.Builder
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if strings.TrimSpace(line) == "" {
			if block.Len() == 0 {
				continue // consecutive separators
			}
			s.cur, s.curErr = stanza.Parse(block.String())
			return true
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
		s.Close()
		return false
	}
	if block.Len() > 0 {
		// Final stanza without trailing separator. The next call sees EOF
		// again and closes.
		s.cur, s.curErr = stanza.Parse(block.String())
		return true
	}
	s.Close()
	return false
}

// Stanza returns the stanza read by the last call to Scan. A parse error
// only concerns this stanza; scanning may continue.
func (s *Stanzas) Stanza() (control.Paragraph, error) {
	return s.cur, s.curErr
}

// Err returns the first read or decompression error, if any.
func (s *Stanzas) Err() error {
	return s.err
}

// Close releases the index. It is safe to call more than once.
func (s *Stanzas) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	s.scanner = nil
	return first
}
