package stanza

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, entry := range []struct {
		name      string
		text      string
		wantOrder []string
		wantVals  map[string]string
	}{
		{
			name:      "Simple",
			text:      "Package: nova\nBinary: nova-common, nova-api\nVersion: 1:13.0.0-0ubuntu1\nArchitecture: all\n",
			wantOrder: []string{"Package", "Binary", "Version", "Architecture"},
			wantVals: map[string]string{
				"Package":      "nova",
				"Binary":       "nova-common, nova-api",
				"Version":      "1:13.0.0-0ubuntu1",
				"Architecture": "all",
			},
		},

		{
			name:      "Continuation",
			text:      "Package: nova\nBinary: nova-common,\n nova-api,\n nova-compute\n",
			wantOrder: []string{"Package", "Binary"},
			wantVals: map[string]string{
				"Package": "nova",
				"Binary":  "nova-common, nova-api, nova-compute",
			},
		},

		{
			name:      "TabContinuation",
			text:      "Description: a\n\tb",
			wantOrder: []string{"Description"},
			wantVals: map[string]string{
				"Description": "a\tb",
			},
		},

		{
			name:      "DelimiterInValue",
			text:      "Homepage: see: http://example.com/",
			wantOrder: []string{"Homepage"},
			wantVals: map[string]string{
				"Homepage": "see: http://example.com/",
			},
		},

		{
			name:      "NoDelimiter",
			text:      "Package: nova\nbroken line\n",
			wantOrder: []string{"Package", "broken line"},
			wantVals: map[string]string{
				"Package":     "nova",
				"broken line": "",
			},
		},

		{
			name:      "EmptyMultilineField",
			text:      "Package: nova\nFiles:\n abc 12 nova.dsc\n def 34 nova.tar.gz\n",
			wantOrder: []string{"Package", "Files"},
			wantVals: map[string]string{
				"Package": "nova",
				"Files":   " abc 12 nova.dsc def 34 nova.tar.gz",
			},
		},

		{
			name:      "DuplicateKey",
			text:      "Package: nova\nVersion: 1\nVersion: 2\n",
			wantOrder: []string{"Package", "Version"},
			wantVals: map[string]string{
				"Package": "nova",
				"Version": "12",
			},
		},

		{
			name:      "CRLF",
			text:      "Package: nova\r\nVersion: 1\r\n",
			wantOrder: []string{"Package", "Version"},
			wantVals: map[string]string{
				"Package": "nova",
				"Version": "1",
			},
		},
	} {
		entry := entry // copy
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()

			p, err := Parse(entry.text)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := p.Order, entry.wantOrder; !reflect.DeepEqual(got, want) {
				t.Errorf("Parse(%q).Order = %q, want %q", entry.text, got, want)
			}
			if got, want := p.Values, entry.wantVals; !reflect.DeepEqual(got, want) {
				t.Errorf("Parse(%q).Values = %q, want %q", entry.text, got, want)
			}
		})
	}
}

func TestParseOrphanContinuation(t *testing.T) {
	t.Parallel()

	_, err := Parse(" leading continuation\nPackage: nova\n")
	if !errors.Is(err, ErrOrphanContinuation) {
		t.Fatalf("Parse: got err %v, want %v", err, ErrOrphanContinuation)
	}
}

func TestParseOneEntryPerLine(t *testing.T) {
	t.Parallel()

	keys := []string{"A", "B-C", "D.e", "F_g", "X-Python-Version"}
	var text string
	for i, k := range keys {
		text += k + ": value " + string(rune('a'+i)) + "\n"
	}
	p, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(p.Values), len(keys); got != want {
		t.Fatalf("len(Values) = %d, want %d", got, want)
	}
	for i, k := range keys {
		if got, want := p.Values[k], "value "+string(rune('a'+i)); got != want {
			t.Errorf("Values[%q] = %q, want %q", k, got, want)
		}
	}
}
