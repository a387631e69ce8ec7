// Package madison queries the madison services of the base archives, the
// same way rmadison(1) does.
package madison

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// URLs maps source names to madison endpoints.
var URLs = map[string]string{
	"debian": "https://api.ftp-master.debian.org/madison",
	"new":    "https://api.ftp-master.debian.org/madison?s=new",
	"qa":     "https://qa.debian.org/madison.php",
	"ubuntu": "http://people.canonical.com/~ubuntu-archive/madison.cgi",
	"udd":    "https://qa.debian.org/cgi-bin/madison.cgi",
}

// ErrUnknownSource is returned for source names missing from URLs.
var ErrUnknownSource = errors.New("unknown source")

// Sources returns the known source names in sorted order.
func Sources() []string {
	names := make([]string, 0, len(URLs))
	for name := range URLs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client queries madison services.
type Client struct {
	Client *http.Client

	// URLs overrides the package-level URLs if non-nil.
	URLs map[string]string
}

func (c *Client) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

// QueryURL returns the request URL for packages on source.
func (c *Client) QueryURL(source string, packages []string) (string, error) {
	urls := c.URLs
	if urls == nil {
		urls = URLs
	}
	base, ok := urls[source]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownSource, source)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("package", strings.Join(packages, " "))
	q.Set("text", "on")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Query returns the plain text answer of source for packages.
func (c *Client) Query(ctx context.Context, source string, packages []string) (string, error) {
	uri, err := c.QueryURL(source, packages)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "cmadison")
	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("querying %s: unexpected HTTP status code: got %d, want %d", source, resp.StatusCode, http.StatusOK)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", source, err)
	}
	return string(b), nil
}

// Result is one line of madison output.
type Result struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
	Suite   string `yaml:"suite"`
	Arch    string `yaml:"arch"`
}

func parse(line string) (Result, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 4 {
		return Result{}, fmt.Errorf("invalid format: %q", line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return Result{
		Package: parts[0],
		Version: parts[1],
		Suite:   parts[2],
		Arch:    parts[3],
	}, nil
}

// ParseResults splits madison text output into its rows. Blank lines are
// skipped; any other line that does not have four "|"-separated fields is an
// error.
func ParseResults(text string) ([]Result, error) {
	var res []Result
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := parse(line)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}
