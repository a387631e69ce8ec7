// Package humanbytes converts between byte counts and human-readable sizes
// such as "512MiB" or "2G", as used in the cache configuration.
package humanbytes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type unit struct {
	suffix string
	factor int64
}

// units is ordered so that the first matching suffix wins: longer suffixes
// before their one-letter prefixes, larger factors before smaller ones.
var units = []unit{
	{"PiB", 1 << 50}, {"PB", 1000 * 1000 * 1000 * 1000 * 1000}, {"P", 1 << 50},
	{"TiB", 1 << 40}, {"TB", 1000 * 1000 * 1000 * 1000}, {"T", 1 << 40},
	{"GiB", 1 << 30}, {"GB", 1000 * 1000 * 1000}, {"G", 1 << 30},
	{"MiB", 1 << 20}, {"MB", 1000 * 1000}, {"M", 1 << 20},
	{"KiB", 1 << 10}, {"KB", 1000}, {"K", 1 << 10},
	{"B", 1},
}

// Format renders b using the largest binary unit not exceeding it.
func Format(b int64) string {
	for _, u := range units {
		if len(u.suffix) != 1 || b < u.factor {
			continue // only the short binary forms are used for output
		}
		if u.suffix == "B" {
			break
		}
		return fmt.Sprintf("%.2f%s", float64(b)/float64(u.factor), u.suffix)
	}
	return fmt.Sprintf("%dB", b)
}

// Parse is the inverse of Format. It also accepts SI suffixes (KB, MB, …)
// and plain byte counts.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, u := range units {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		return scale(s, strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), u.factor)
	}
	return scale(s, s, 1)
}

// scale parses the number num and multiplies it by factor. Negative sizes
// and products beyond int64 are rejected.
func scale(s, num string, factor int64) (int64, error) {
	n, err := strconv.ParseInt(num, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	if n > math.MaxInt64/factor {
		return 0, fmt.Errorf("invalid size %q: overflows int64", s)
	}
	return n * factor, nil
}
