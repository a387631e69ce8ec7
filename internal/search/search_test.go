package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/wolsen/cmadison/internal/archive"
	"github.com/wolsen/cmadison/internal/listing"
	"github.com/wolsen/cmadison/internal/sources"
)

const novaStanza = "Package: nova\nBinary: nova-common, nova-api\nVersion: 1:13.0.0-0ubuntu1\nArchitecture: all\n"

func listingPage(entries ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString(`<tr><td><img alt="[PARENTDIR]"></td><td><a href="../">Parent Directory</a></td></tr>` + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<tr><td><img alt=\"[DIR]\"></td><td><a href=\"%s/\">%s/</a></td><td>2020-01-01 00:00</td></tr>\n", e, e)
	}
	b.WriteString("</table></body></html>\n")
	return b.String()
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(s))
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeArchive serves a cloud archive with the given layout (distribution →
// release → uncompressed Sources content). Locations with empty content
// answer HTTP 404 for their index.
func fakeArchive(t *testing.T, layout map[string]map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var dists []string
	for dist := range layout {
		dists = append(dists, dist)
	}
	sort.Strings(dists)
	mux.HandleFunc("/dists/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage(dists...)))
	})
	for dist, releases := range layout {
		var names []string
		for release, content := range releases {
			names = append(names, release)
			if content == "" {
				continue
			}
			payload := gzipped(t, content)
			mux.HandleFunc(fmt.Sprintf("/dists/%s/%s/main/source/Sources.gz", dist, release), func(w http.ResponseWriter, r *http.Request) {
				w.Write(payload)
			})
		}
		sort.Strings(names)
		page := listingPage(names...)
		mux.HandleFunc("/dists/"+dist+"/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/dists/"+dist+"/" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(page))
		})
	}
	return httptest.NewServer(mux)
}

func newSearcher(t *testing.T, baseURL string) *Searcher {
	t.Helper()
	return &Searcher{
		Locator: &archive.Discovery{Lister: &listing.Crawler{BaseURL: baseURL + "/dists"}},
		Fetcher: &sources.Fetcher{
			BaseURL:    baseURL + "/dists",
			ScratchDir: t.TempDir(),
		},
		Parallel: 2,
	}
}

func sorted(records []Record) []Record {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Row(), records[j].Row()
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return records
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ts := fakeArchive(t, map[string]map[string]string{
		"xenial-updates": {
			"mitaka": novaStanza,
			"newton": novaStanza,
			"ocata":  "", // index missing
		},
		"xenial-proposed": {
			"mitaka": novaStanza,
		},
		"precise-updates": {
			"stein": novaStanza,
		},
	})
	t.Cleanup(ts.Close)

	for _, entry := range []struct {
		name            string
		pkgs            []string
		includeEOL      bool
		wantSupported   []Record
		wantUnsupported []Record
	}{
		{
			name: "Binary",
			pkgs: []string{"nova-api"},
			wantSupported: []Record{
				{"nova-api", "1:13.0.0-0ubuntu1", "mitaka", "all"},
				{"nova-api", "1:13.0.0-0ubuntu1", "mitaka-proposed", "all"},
			},
		},

		{
			name: "Source",
			pkgs: []string{"nova"},
			wantSupported: []Record{
				{"nova", "1:13.0.0-0ubuntu1", "mitaka", "source"},
				{"nova", "1:13.0.0-0ubuntu1", "mitaka-proposed", "source"},
			},
		},

		{
			name:       "EOL",
			pkgs:       []string{"nova-common"},
			includeEOL: true,
			wantSupported: []Record{
				{"nova-common", "1:13.0.0-0ubuntu1", "mitaka", "all"},
				{"nova-common", "1:13.0.0-0ubuntu1", "mitaka-proposed", "all"},
			},
			wantUnsupported: []Record{
				{"nova-common", "1:13.0.0-0ubuntu1", "newton", "all"},
			},
		},

		{
			name: "NoMatch",
			pkgs: []string{"glance"},
		},
	} {
		entry := entry // copy
		t.Run(entry.name, func(t *testing.T) {
			t.Parallel()

			res, err := newSearcher(t, ts.URL).Search(context.Background(), entry.pkgs, entry.includeEOL)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := sorted(res.Supported), entry.wantSupported; len(got)+len(want) > 0 && !reflect.DeepEqual(got, want) {
				t.Errorf("Supported = %v, want %v", got, want)
			}
			if got, want := sorted(res.Unsupported), entry.wantUnsupported; len(got)+len(want) > 0 && !reflect.DeepEqual(got, want) {
				t.Errorf("Unsupported = %v, want %v", got, want)
			}
			for _, r := range append(res.Supported, res.Unsupported...) {
				if r.Release == "stein" {
					t.Errorf("record from ignored location precise-updates/stein: %v", r)
				}
			}
		})
	}
}

func TestSearchSourceAndBinary(t *testing.T) {
	t.Parallel()

	index := "Package: python-oslo.config\nBinary: python-oslo.config\nVersion: 1:3.9.0-3\nArchitecture: all\n\n" +
		"Package: oslo-config\nBinary: python-oslo-config, oslo-config-doc\nVersion: 3.9.0-1\nArchitecture: any\n\n" +
		"Package: unrelated\nBinary: oslo-config-tools\nVersion: 1.0-1\nArchitecture: amd64\n"
	ts := fakeArchive(t, map[string]map[string]string{
		"xenial-updates": {"mitaka": index},
	})
	defer ts.Close()

	res, err := newSearcher(t, ts.URL).Search(context.Background(), []string{"python-oslo-config", "oslo-config"}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{"oslo-config", "3.9.0-1", "mitaka", "source"},
		{"python-oslo-config", "3.9.0-1", "mitaka", "any"},
	}
	if got := sorted(res.Supported); !reflect.DeepEqual(got, want) {
		t.Errorf("Supported = %v, want %v", got, want)
	}
}

func TestSearchSkipsBadStanzas(t *testing.T) {
	t.Parallel()

	index := "Package: nova\nVersion: 1\n\n" + // no Binary
		" orphan\n\n" +
		"Package: nova\nBinary: nova-api\nArchitecture: all\n\n" + // no Version
		novaStanza
	ts := fakeArchive(t, map[string]map[string]string{
		"xenial-updates": {"mitaka": index},
	})
	defer ts.Close()

	res, err := newSearcher(t, ts.URL).Search(context.Background(), []string{"nova-api"}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{{"nova-api", "1:13.0.0-0ubuntu1", "mitaka", "all"}}
	if !reflect.DeepEqual(res.Supported, want) {
		t.Errorf("Supported = %v, want %v", res.Supported, want)
	}
}

func TestSearchRawVersions(t *testing.T) {
	t.Parallel()

	index := "Package: nova\nBinary: nova-api\nVersion: 0:13.0.0-1\nArchitecture: all\n\n" +
		"Package: glance\nBinary: glance-api\nVersion: git20200101-1\nArchitecture: all\n"
	ts := fakeArchive(t, map[string]map[string]string{
		"xenial-updates": {"mitaka": index},
	})
	defer ts.Close()

	res, err := newSearcher(t, ts.URL).Search(context.Background(), []string{"nova", "glance-api"}, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{"glance-api", "git20200101-1", "mitaka", "all"},
		{"nova", "0:13.0.0-1", "mitaka", "source"},
	}
	if got := sorted(res.Supported); !reflect.DeepEqual(got, want) {
		t.Errorf("Supported = %v, want %v", got, want)
	}
}

func TestSearchDiscoveryFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	if _, err := newSearcher(t, ts.URL).Search(context.Background(), []string{"nova"}, false); err == nil {
		t.Fatal("Search: expected an error when the archive root cannot be listed")
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	src := sources.Source{
		Package:      "nova",
		Binaries:     []string{"nova-common", "nova-api"},
		Architecture: "all",
	}
	for _, entry := range []struct {
		name string
		want string
	}{
		{"nova", KindSource},
		{"nova-api", "all"},
		{"nova-ap", ""},
		{"nova-common, nova-api", ""},
	} {
		if got := Match(src, entry.name); got != entry.want {
			t.Errorf("Match(%q) = %q, want %q", entry.name, got, entry.want)
		}
	}
}
