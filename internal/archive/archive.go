// Package archive discovers which distributions and OpenStack releases the
// cloud archive carries.
package archive

import (
	"context"
	"fmt"

	"github.com/wolsen/cmadison/internal/sources"
)

// DefaultURL is the dists/ directory of the Ubuntu Cloud Archive.
const DefaultURL = "http://ubuntu-cloud.archive.canonical.com/ubuntu/dists"

// Unsupported lists the OpenStack releases which reached end of life. They
// are only searched when explicitly requested.
var Unsupported = map[string]bool{
	"folsom":   true,
	"grizzly":  true,
	"havana":   true,
	"icehouse": true,
	"juno":     true,
	"kilo":     true,
	"liberty":  true,
	"newton":   true,
}

// Ignored maps distribution pockets to releases which are never searched,
// end of life or not.
var Ignored = map[string][]string{
	"precise-updates":  {"stein"},
	"precise-proposed": {"stein"},
}

// IsUnsupported reports whether release reached end of life.
func IsUnsupported(release string) bool {
	return Unsupported[release]
}

// IsIgnored reports whether the release below dist must never be searched.
func IsIgnored(dist, release string) bool {
	for _, r := range Ignored[dist] {
		if r == release {
			return true
		}
	}
	return false
}

// Lister lists the entries of a directory relative to the archive root.
type Lister interface {
	List(ctx context.Context, relPath string) ([]string, error)
}

// Discovery walks the archive's directory tree.
type Discovery struct {
	Lister Lister
}

// Distributions returns all distribution pockets, e.g. xenial-updates.
func (d *Discovery) Distributions(ctx context.Context) ([]string, error) {
	dists, err := d.Lister.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing distributions: %w", err)
	}
	return dists, nil
}

// Releases returns the OpenStack releases available for dist. End-of-life
// releases are dropped unless includeEOL is set; ignored releases are always
// dropped.
func (d *Discovery) Releases(ctx context.Context, dist string, includeEOL bool) ([]string, error) {
	all, err := d.Lister.List(ctx, dist)
	if err != nil {
		return nil, fmt.Errorf("listing releases of %s: %w", dist, err)
	}
	releases := make([]string, 0, len(all))
	for _, r := range all {
		if !includeEOL && IsUnsupported(r) {
			continue
		}
		if IsIgnored(dist, r) {
			continue
		}
		releases = append(releases, r)
	}
	return releases, nil
}

// Locations returns every (distribution, release) pair to search.
func (d *Discovery) Locations(ctx context.Context, includeEOL bool) ([]sources.Location, error) {
	dists, err := d.Distributions(ctx)
	if err != nil {
		return nil, err
	}
	var locs []sources.Location
	for _, dist := range dists {
		releases, err := d.Releases(ctx, dist, includeEOL)
		if err != nil {
			return nil, err
		}
		for _, r := range releases {
			locs = append(locs, sources.Location{Distribution: dist, Release: r})
		}
	}
	return locs, nil
}
