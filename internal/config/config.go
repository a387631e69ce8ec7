// Package config reads the optional cmadison configuration file, a single
// deb822 stanza such as:
//
//	Archive-URL: http://ubuntu-cloud.archive.canonical.com/ubuntu/dists
//	Sources: cloud-archive, ubuntu
//	Cache-Max-Age: 24h
//	Cache-Size-Limit: 200M
//	Parallel: 8
//	Index-Files: Sources.xz, Sources.gz
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pault.ag/go/debian/control"

	"github.com/wolsen/cmadison/internal/humanbytes"
)

// FileName is the name of the configuration file below DefaultDir.
const FileName = "cmadison.deb822"

// Config holds the settings of the configuration file. Zero values mean the
// setting is absent.
type Config struct {
	ArchiveURL     string
	Sources        []string
	CacheMaxAge    time.Duration
	CacheSizeLimit int64
	Parallel       int
	IndexFiles     []string
}

type file struct {
	ArchiveURL     string   `control:"Archive-URL"`
	Sources        []string `control:"Sources" delim:"," strip:" "`
	CacheMaxAge    string   `control:"Cache-Max-Age"`
	CacheSizeLimit string   `control:"Cache-Size-Limit"`
	Parallel       string   `control:"Parallel"`
	IndexFiles     []string `control:"Index-Files" delim:"," strip:" "`
}

// ResolveTilde expands a leading ~ to $HOME. Shells pass such paths
// unexpanded when they come from environment variables or flag defaults.
func ResolveTilde(s string) (string, error) {
	if !strings.HasPrefix(s, "~") {
		return s, nil
	}
	homedir := os.Getenv("HOME")
	if homedir == "" {
		return "", fmt.Errorf("cannot resolve path %q: environment variable $HOME empty", s)
	}
	return filepath.Join(homedir, strings.TrimPrefix(s, "~")), nil
}

// DefaultPath returns ~/.config/cmadison/cmadison.deb822, honoring
// $XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cmadison", FileName), nil
}

// Read parses the configuration file at path. A missing file yields an
// empty Config.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return Parse(b, path)
}

// Parse parses configuration file contents. name is used in error messages.
func Parse(b []byte, name string) (*Config, error) {
	var f file
	if err := control.Unmarshal(&f, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	cfg := &Config{
		ArchiveURL: f.ArchiveURL,
	}
	for _, s := range f.Sources {
		if s != "" {
			cfg.Sources = append(cfg.Sources, s)
		}
	}
	for _, s := range f.IndexFiles {
		if s != "" {
			cfg.IndexFiles = append(cfg.IndexFiles, s)
		}
	}
	if f.CacheMaxAge != "" {
		d, err := time.ParseDuration(f.CacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid Cache-Max-Age value %q: %w", name, f.CacheMaxAge, err)
		}
		cfg.CacheMaxAge = d
	}
	if f.CacheSizeLimit != "" {
		v, err := humanbytes.Parse(f.CacheSizeLimit)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid Cache-Size-Limit value %q: %w", name, f.CacheSizeLimit, err)
		}
		cfg.CacheSizeLimit = v
	}
	if f.Parallel != "" {
		n, err := strconv.Atoi(f.Parallel)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s: invalid Parallel value %q: want a positive integer", name, f.Parallel)
		}
		cfg.Parallel = n
	}
	return cfg, nil
}
