// Package sources downloads Sources indexes of the cloud archive and turns
// them into a lazy sequence of stanzas.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/wolsen/cmadison/internal/humanbytes"
	"github.com/wolsen/cmadison/internal/verbose"
	"github.com/wolsen/cmadison/internal/write"
)

// DefaultIndexFiles are the index files tried for each location, in order.
var DefaultIndexFiles = []string{"Sources.xz", "Sources.gz"}

// UserAgent is sent with every request.
const UserAgent = "cmadison"

// Fetcher downloads Sources indexes into a scratch directory.
type Fetcher struct {
	// Client is used for all requests. http.DefaultClient if nil.
	Client *http.Client

	// BaseURL is the dists/ directory of the archive, without trailing slash.
	BaseURL string

	// ScratchDir receives one file per location. The caller owns it and
	// removes it once the search is done.
	ScratchDir string

	// IndexFiles names the indexes below main/source/ to try in order; the
	// first one the server has is used. DefaultIndexFiles if empty. The
	// extension selects the decompressor.
	IndexFiles []string

	Logger verbose.Logger
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *Fetcher) indexFiles() []string {
	if len(f.IndexFiles) == 0 {
		return DefaultIndexFiles
	}
	return f.IndexFiles
}

// IndexURL returns the URL of the index file for loc.
func (f *Fetcher) IndexURL(loc Location, file string) string {
	return strings.Join([]string{
		strings.TrimSuffix(f.BaseURL, "/"),
		loc.Distribution,
		loc.Release,
		"main",
		"source",
		file,
	}, "/")
}

// Fetch downloads the first available index file for loc and returns its
// stanzas.
//
// An index the server does not serve in any of the formats (any non-2xx
// status) is not an error: the failure is logged and the returned Stanzas is
// not ready and yields nothing. An error fetching one file moves on to the
// next; it is returned only if no file could be fetched.
func (f *Fetcher) Fetch(ctx context.Context, loc Location) (*Stanzas, error) {
	var (
		status  int
		lastErr error
	)
	for _, file := range f.indexFiles() {
		s, code, err := f.fetch(ctx, loc, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			verbose.Or(f.Logger).Printf("%v", err)
			lastErr = err
			continue
		}
		if s != nil {
			return s, nil
		}
		status = code
	}
	if lastErr != nil {
		return nil, lastErr
	}
	verbose.Or(f.Logger).Printf("could not download source for %s: unexpected HTTP status code: got %d, want %d",
		loc, status, http.StatusOK)
	return empty(), nil
}

// fetch downloads one index file. A nil Stanzas and the status code are
// returned when the server does not have it.
func (f *Fetcher) fetch(ctx context.Context, loc Location, file string) (*Stanzas, int, error) {
	uri := f.IndexURL(loc, file)
	verbose.Or(f.Logger).Printf("downloading %s", uri)

	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching index for %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Discard the Body (for Keep-Alive).
		io.Copy(io.Discard, resp.Body)
		verbose.Or(f.Logger).Printf("%s: unexpected HTTP status code: got %d, want %d", uri, resp.StatusCode, http.StatusOK)
		return nil, resp.StatusCode, nil
	}

	dest := filepath.Join(f.ScratchDir, loc.scratchName(file))
	n, err := write.Atomically(dest, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("storing index for %s: %w", loc, err)
	}
	verbose.Or(f.Logger).Printf("stored %s as %s (%s)", uri, dest, humanbytes.Format(n))

	s, err := Open(dest)
	if err != nil {
		return nil, 0, err
	}
	return s, resp.StatusCode, nil
}
