// Package listing reads the auto-generated directory index pages served by
// the cloud archive (Apache mod_autoindex tables).
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wolsen/cmadison/internal/verbose"
)

// parentDirectory is the label of the navigation link back up the tree.
const parentDirectory = "Parent Directory"

// Crawler lists directories below BaseURL.
type Crawler struct {
	Client  *http.Client
	BaseURL string
	Logger  verbose.Logger
}

// List returns the entry names of the directory at relPath (relative to
// BaseURL; empty for the root) in page order. Directory names are returned
// without their trailing slash and the parent directory link is skipped.
func (c *Crawler) List(ctx context.Context, relPath string) ([]string, error) {
	uri := DirURL(c.BaseURL, relPath)
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cmadison")
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if got, want := resp.StatusCode, http.StatusOK; got != want {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%q: unexpected HTTP status code: got %d, want %d", uri, got, want)
	}

	entries, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", uri, err)
	}
	verbose.Or(c.Logger).Printf("found entries at %s: %q", uri, entries)
	return entries, nil
}

// DirURL returns the URL of the directory relPath below base, with a
// trailing slash.
func DirURL(base, relPath string) string {
	uri := strings.TrimSuffix(base, "/") + "/" + relPath
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri
}

// Parse extracts the entry names from a directory index page: the text of
// every element nested directly in a table cell, typically the <a> links.
func Parse(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Td {
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type != html.ElementNode {
					continue
				}
				for text := child.FirstChild; text != nil; text = text.NextSibling {
					if text.Type != html.TextNode {
						continue
					}
					if name := entryName(text.Data); name != "" {
						entries = append(entries, name)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return entries, nil
}

func entryName(text string) string {
	if text == parentDirectory {
		return ""
	}
	return strings.TrimSuffix(text, "/")
}
