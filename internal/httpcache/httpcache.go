// Package httpcache is an http.RoundTripper which keeps successful GET
// responses in an SQLite database, so that repeated invocations do not
// download the same directory listings and indexes again.
package httpcache

import (
	"bufio"
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wolsen/cmadison/internal/verbose"
)

// FileName is the database file inside the cache directory.
const FileName = "cmadison.sqlite"

// FromCacheHeader is set on responses served from the cache.
const FromCacheHeader = "X-Cmadison-Cache"

const schema = `
CREATE TABLE IF NOT EXISTS responses (
    url TEXT PRIMARY KEY,
    stored INTEGER NOT NULL,
    response BLOB NOT NULL
);
`

// DefaultDir returns $SNAP_USER_DATA when running as a snap, ~/.cmadison
// otherwise.
func DefaultDir() (string, error) {
	if dir := os.Getenv("SNAP_USER_DATA"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cmadison"), nil
}

// Clear removes the cache database from dir. A missing database is not an
// error.
func Clear(dir string) error {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(filepath.Join(dir, FileName+suffix)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Transport serves GET requests from the cache when possible and stores
// every HTTP 200 response it fetches.
type Transport struct {
	// Base performs the requests the cache cannot answer.
	// http.DefaultTransport if nil.
	Base http.RoundTripper

	// MaxAge is how long an entry is served. Zero means entries never
	// expire.
	MaxAge time.Duration

	// SizeLimit caps the total size of stored responses in bytes. The
	// oldest entries are pruned after each store. Zero means unlimited.
	SizeLimit int64

	Logger verbose.Logger

	// now is time.Now, overridden by tests.
	now func() time.Time

	db *sql.DB
}

// Open opens (creating if necessary) the cache database in dir.
func Open(dir string) (*Transport, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	// Concurrent writers on separate connections fail with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing %s: %w", dir, err)
	}
	return &Transport{db: db, now: time.Now}, nil
}

// Close closes the cache database.
func (t *Transport) Close() error {
	return t.db.Close()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) logf(format string, v ...interface{}) {
	verbose.Or(t.Logger).Printf(format, v...)
}

// RoundTrip implements http.RoundTripper. Cache failures are logged and the
// request goes to the network.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != "GET" {
		return t.base().RoundTrip(req)
	}
	key := req.URL.String()

	if resp, err := t.lookup(req, key); err != nil {
		t.logf("cache lookup for %s: %v", key, err)
	} else if resp != nil {
		t.logf("serving %s from cache", key)
		return resp, nil
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	// DumpResponse replaces resp.Body with an in-memory copy.
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if err := t.store(key, dump); err != nil {
		t.logf("cache store for %s: %v", key, err)
	}
	return resp, nil
}

func (t *Transport) lookup(req *http.Request, key string) (*http.Response, error) {
	var (
		stored int64
		dump   []byte
	)
	err := t.db.QueryRow("SELECT stored, response FROM responses WHERE url = ?", key).Scan(&stored, &dump)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.MaxAge > 0 && t.now().Sub(time.Unix(0, stored)) > t.MaxAge {
		return nil, nil
	}
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(dump)), req)
	if err != nil {
		return nil, err
	}
	resp.Header.Set(FromCacheHeader, "1")
	return resp, nil
}

func (t *Transport) store(key string, dump []byte) error {
	if _, err := t.db.Exec(`
INSERT INTO responses (url, stored, response) VALUES (?, ?, ?)
ON CONFLICT(url) DO UPDATE SET stored = excluded.stored, response = excluded.response`,
		key, t.now().UnixNano(), dump); err != nil {
		return err
	}
	return t.prune()
}

// prune deletes the oldest entries until the total size is within SizeLimit.
func (t *Transport) prune() error {
	if t.SizeLimit <= 0 {
		return nil
	}
	rows, err := t.db.Query("SELECT url, length(response) FROM responses ORDER BY stored DESC")
	if err != nil {
		return err
	}
	var (
		total int64
		evict []string
	)
	for rows.Next() {
		var (
			url  string
			size int64
		)
		if err := rows.Scan(&url, &size); err != nil {
			rows.Close()
			return err
		}
		total += size
		if total > t.SizeLimit {
			evict = append(evict, url)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, url := range evict {
		if _, err := t.db.Exec("DELETE FROM responses WHERE url = ?", url); err != nil {
			return err
		}
		t.logf("pruned %s from cache", url)
	}
	return nil
}

// Len returns the number of cached responses.
func (t *Transport) Len() (int, error) {
	var n int
	err := t.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n)
	return n, err
}
