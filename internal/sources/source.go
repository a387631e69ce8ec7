package sources

import (
	"fmt"
	"strings"

	"pault.ag/go/debian/control"
	"pault.ag/go/debian/version"
)

// MissingFieldError is returned by NewSource when a stanza lacks one of the
// fields a Source is built from.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("stanza has no %s field", e.Field)
}

// Source contains the fields of a Sources index stanza that matching needs.
// Version is the raw field value, exactly as the index spells it.
type Source struct {
	Package      string
	Binaries     []string
	Version      string
	Architecture string
}

// NewSource builds a Source from a parsed stanza, failing if any of Package,
// Binary, Version or Architecture is absent.
func NewSource(p control.Paragraph) (Source, error) {
	var fields [4]string
	for i, name := range []string{"Package", "Binary", "Version", "Architecture"} {
		val, ok := p.Values[name]
		if !ok {
			return Source{}, &MissingFieldError{Field: name}
		}
		fields[i] = val
	}

	return Source{
		Package:      fields[0],
		Binaries:     strings.Split(fields[1], ", "),
		Version:      fields[2],
		Architecture: fields[3],
	}, nil
}

// DebianVersion parses Version according to Debian policy. Indexes do carry
// versions that fail this, e.g. an upstream part starting with a letter.
func (s Source) DebianVersion() (version.Version, error) {
	v, err := version.Parse(s.Version)
	if err != nil {
		return version.Version{}, fmt.Errorf("source package %s: invalid version %q: %w", s.Package, s.Version, err)
	}
	return v, nil
}

// Produces reports whether binpkg is one of the binary packages built from s.
func (s Source) Produces(binpkg string) bool {
	for _, b := range s.Binaries {
		if b == binpkg {
			return true
		}
	}
	return false
}
