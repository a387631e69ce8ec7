// Package search looks up package names in the Sources indexes of every
// cloud archive location.
package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wolsen/cmadison/internal/archive"
	"github.com/wolsen/cmadison/internal/sources"
	"github.com/wolsen/cmadison/internal/verbose"
)

// KindSource marks a record matching the source package name. Records
// matching a binary package carry the stanza's architecture instead.
const KindSource = "source"

// DefaultParallel is the number of locations searched concurrently.
const DefaultParallel = 4

// Record is one row of output.
type Record struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
	Release string `yaml:"release"`
	Kind    string `yaml:"kind"`
}

// Row returns the record as table cells.
func (r Record) Row() []string {
	return []string{r.Package, r.Version, r.Release, r.Kind}
}

// Result groups records of end-of-life releases apart from the rest.
// Unsupported is only populated when end-of-life releases were requested.
type Result struct {
	Unsupported []Record `yaml:"unsupported,omitempty"`
	Supported   []Record `yaml:"supported"`
}

// Locator enumerates the locations to search.
type Locator interface {
	Locations(ctx context.Context, includeEOL bool) ([]sources.Location, error)
}

// Fetcher returns the stanzas of a location's index.
type Fetcher interface {
	Fetch(ctx context.Context, loc sources.Location) (*sources.Stanzas, error)
}

// Searcher searches all locations of an archive.
type Searcher struct {
	Locator  Locator
	Fetcher  Fetcher
	Parallel int
	Logger   verbose.Logger
}

// Match classifies src against name: KindSource if name is the source
// package, the architecture if it is one of its binaries, "" otherwise.
func Match(src sources.Source, name string) string {
	if src.Package == name {
		return KindSource
	}
	if src.Produces(name) {
		return src.Architecture
	}
	return ""
}

// Search looks for names in every location. Only failing to discover the
// locations is an error; a location whose index cannot be fetched or read
// contributes no records.
func (s *Searcher) Search(ctx context.Context, names []string, includeEOL bool) (*Result, error) {
	locs, err := s.Locator.Locations(ctx, includeEOL)
	if err != nil {
		return nil, err
	}

	parallel := s.Parallel
	if parallel < 1 {
		parallel = DefaultParallel
	}

	var (
		mu     sync.Mutex
		result Result
	)
	sem := semaphore.NewWeighted(int64(parallel))
	eg, egctx := errgroup.WithContext(ctx)
	for _, loc := range locs {
		loc := loc // copy
		if err := sem.Acquire(egctx, 1); err != nil {
			break // canceled, reported below
		}
		eg.Go(func() error {
			defer sem.Release(1)
			records, err := s.searchLocation(egctx, loc, names)
			if err != nil {
				if err := egctx.Err(); err != nil {
					return err
				}
				s.logf("skipping %s: %v", loc, err)
				return nil
			}
			eol := includeEOL && archive.IsUnsupported(loc.Release)
			mu.Lock()
			defer mu.Unlock()
			if eol {
				result.Unsupported = append(result.Unsupported, records...)
			} else {
				result.Supported = append(result.Supported, records...)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Searcher) searchLocation(ctx context.Context, loc sources.Location, names []string) ([]Record, error) {
	stanzas, err := s.Fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer stanzas.Close()

	var records []Record
	for stanzas.Scan() {
		p, err := stanzas.Stanza()
		if err != nil {
			s.logf("%s: skipping malformed stanza: %v", loc, err)
			continue
		}
		src, err := sources.NewSource(p)
		if err != nil {
			s.logf("%s: skipping stanza: %v", loc, err)
			continue
		}
		for _, name := range names {
			kind := Match(src, name)
			if kind == "" {
				continue
			}
			if _, err := src.DebianVersion(); err != nil {
				s.logf("%s: reporting unparsable version as is: %v", loc, err)
			}
			records = append(records, Record{
				Package: name,
				Version: src.Version,
				Release: loc.DisplayRelease(),
				Kind:    kind,
			})
		}
	}
	return records, stanzas.Err()
}

func (s *Searcher) logf(format string, v ...interface{}) {
	verbose.Or(s.Logger).Printf(format, v...)
}
