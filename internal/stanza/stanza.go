// Package stanza parses single deb822 paragraphs as found in Sources indexes.
//
// The parser is lenient: values are kept as raw strings,
// continuation lines are concatenated without inserting separators and a
// line without a ": " delimiter becomes a key with an empty value. Only a
// continuation line with no preceding key is rejected.
package stanza

import (
	"errors"
	"fmt"
	"strings"

	"pault.ag/go/debian/control"
)

// ErrOrphanContinuation is returned when a stanza starts with a continuation
// line, i.e. there is no key the line could belong to.
var ErrOrphanContinuation = errors.New("continuation line without preceding key")

const delim = ": "

// Parse parses the text of one stanza (no blank lines inside) into a
// paragraph. Keys are unique: a repeated key has its value appended to the
// existing value, just like a continuation line.
func Parse(text string) (control.Paragraph, error) {
	p := control.Paragraph{
		Values: make(map[string]string),
	}

	var key string
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if key == "" {
				return control.Paragraph{}, fmt.Errorf("line %d: %w", n+1, ErrOrphanContinuation)
			}
			p.Values[key] += line
			continue
		}

		k, v, found := strings.Cut(line, delim)
		if !found {
			// Multi-line fields such as Files start with "Files:" on a line of
			// their own.
			k, v = strings.TrimSuffix(line, ":"), ""
		}
		key = k

		if _, ok := p.Values[key]; ok {
			p.Values[key] += v
			continue
		}
		p.Values[key] = v
		p.Order = append(p.Order, key)
	}

	return p, nil
}
