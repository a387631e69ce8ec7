// Package report renders search results in the rmadison-like table format,
// or as YAML for scripts.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolsen/cmadison/internal/search"
)

const (
	unsupportedHeading = "-- Unsupported Releases --"
	supportedHeading   = "-- Supported Releases --"
)

// Sort orders records by package name concatenated with release name, so
// e.g. nova-api/mitaka ("nova-apimitaka") sorts before nova/newton
// ("novanewton").
func Sort(records []search.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Package+records[i].Release < records[j].Package+records[j].Release
	})
}

// Widths returns the length of the widest cell of each column.
func Widths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := len(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return widths
}

// Table writes rows as left-aligned columns separated by " | ", each row
// indented by one space. Every column is as wide as its widest cell.
func Table(w io.Writer, rows [][]string) error {
	return table(w, rows, Widths(rows))
}

func table(w io.Writer, rows [][]string, widths []int) error {
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		if _, err := fmt.Fprintln(w, " "+strings.Join(cells, " | ")); err != nil {
			return err
		}
	}
	return nil
}

func rows(records []search.Record) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = r.Row()
	}
	return out
}

// Write prints res as tables. A "header:" line precedes the output if header
// is non-empty; a blank line always follows it. Both tables share column
// widths.
func Write(w io.Writer, res *search.Result, header string) error {
	if header != "" {
		if _, err := fmt.Fprintf(w, "%s:\n", header); err != nil {
			return err
		}
	}

	Sort(res.Unsupported)
	Sort(res.Supported)
	eol, supported := rows(res.Unsupported), rows(res.Supported)
	widths := Widths(append(append([][]string{}, eol...), supported...))

	if len(eol) > 0 {
		if _, err := fmt.Fprintln(w, unsupportedHeading); err != nil {
			return err
		}
		if err := table(w, eol, widths); err != nil {
			return err
		}
	}

	if len(supported) > 0 {
		if len(eol) > 0 {
			if _, err := fmt.Fprintln(w, supportedHeading); err != nil {
				return err
			}
		}
		if err := table(w, supported, widths); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// WriteYAML prints v as a YAML document keyed by source name. The document
// starts with an explicit "---" marker, so that the output of several sources
// forms a valid YAML stream.
func WriteYAML(w io.Writer, name string, v interface{}) error {
	if res, ok := v.(*search.Result); ok {
		Sort(res.Unsupported)
		Sort(res.Supported)
	}
	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]interface{}{name: v}); err != nil {
		return err
	}
	return enc.Close()
}
