package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/wolsen/cmadison/internal/archive"
	"github.com/wolsen/cmadison/internal/httpcache"
	"github.com/wolsen/cmadison/internal/listing"
	"github.com/wolsen/cmadison/internal/madison"
	"github.com/wolsen/cmadison/internal/report"
	"github.com/wolsen/cmadison/internal/search"
	"github.com/wolsen/cmadison/internal/sources"
)

func (i *invocation) httpClient() (*http.Client, func(), error) {
	client := &http.Client{Timeout: i.timeout}
	if i.clearCache {
		i.V().Printf("clearing cache in %s", i.cacheDir)
		if err := httpcache.Clear(i.cacheDir); err != nil {
			return nil, nil, err
		}
	}
	if i.noCache {
		return client, func() {}, nil
	}
	tr, err := httpcache.Open(i.cacheDir)
	if err != nil {
		log.Printf("not caching responses: %v", err)
		return client, func() {}, nil
	}
	tr.MaxAge = i.cacheMaxAge
	tr.SizeLimit = i.cacheSizeLimit
	tr.Logger = i.V()
	client.Transport = tr
	return client, func() { tr.Close() }, nil
}

// run queries every source for packages, in the order the sources were
// given. Each source's output is preceded by a "source:" line when more than
// one source is queried.
func (i *invocation) run(ctx context.Context, packages []string) error {
	scratchDir, err := os.MkdirTemp("", "cmadison-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratchDir)

	client, closeCache, err := i.httpClient()
	if err != nil {
		return err
	}
	defer closeCache()

	header := len(i.sources) > 1
	for _, source := range i.sources {
		name := ""
		if header {
			name = source
		}
		if source == cloudArchive {
			if err := i.searchCloudArchive(ctx, client, scratchDir, packages, name); err != nil {
				return err
			}
			continue
		}
		if err := i.searchMadison(ctx, client, source, packages, name); err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Printf("error querying %s: %v", source, err)
		}
	}
	return nil
}

func (i *invocation) searchCloudArchive(ctx context.Context, client *http.Client, scratchDir string, packages []string, header string) error {
	s := &search.Searcher{
		Locator: &archive.Discovery{
			Lister: &listing.Crawler{
				Client:  client,
				BaseURL: i.archiveURL,
				Logger:  i.V(),
			},
		},
		Fetcher: &sources.Fetcher{
			Client:     client,
			BaseURL:    i.archiveURL,
			ScratchDir: scratchDir,
			IndexFiles: i.indexFiles,
			Logger:     i.V(),
		},
		Parallel: i.parallel,
		Logger:   i.V(),
	}
	res, err := s.Search(ctx, packages, i.includeEOL)
	if err != nil {
		return fmt.Errorf("searching %s: %w", i.archiveURL, err)
	}
	if i.output == "yaml" {
		return report.WriteYAML(i.stdout, cloudArchive, res)
	}
	return report.Write(i.stdout, res, header)
}

func (i *invocation) searchMadison(ctx context.Context, client *http.Client, source string, packages []string, header string) error {
	c := &madison.Client{Client: client, URLs: i.madisonURLs}
	text, err := c.Query(ctx, source, packages)
	if err != nil {
		return err
	}
	if i.output == "yaml" {
		results, err := madison.ParseResults(text)
		if err != nil {
			return err
		}
		return report.WriteYAML(i.stdout, source, results)
	}
	if header != "" {
		if _, err := fmt.Fprintf(i.stdout, "%s:\n", header); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(i.stdout, text)
	return err
}
