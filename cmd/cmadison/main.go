// Program cmadison shows the versions of packages in the Ubuntu Cloud Archive,
// and optionally in the archives known to rmadison(1).
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wolsen/cmadison/internal/archive"
	"github.com/wolsen/cmadison/internal/config"
	"github.com/wolsen/cmadison/internal/httpcache"
	"github.com/wolsen/cmadison/internal/madison"
	"github.com/wolsen/cmadison/internal/search"
	"github.com/wolsen/cmadison/internal/sources"
)

// cloudArchive is the source name of the Ubuntu Cloud Archive.
const cloudArchive = "cloud-archive"

type verboseLogger bool

func (v verboseLogger) Printf(format string, args ...interface{}) {
	if !bool(v) {
		return
	}
	log.Output(2, fmt.Sprintf(format, args...))
}

type invocation struct {
	sources        []string
	includeEOL     bool
	noCache        bool
	clearCache     bool
	verbose        bool
	output         string
	archiveURL     string
	parallel       int
	indexFiles     []string
	timeout        time.Duration
	cacheDir       string
	cacheMaxAge    time.Duration
	cacheSizeLimit int64

	stdout      io.Writer         // for testing
	madisonURLs map[string]string // for testing
}

func (i *invocation) V() verboseLogger {
	return verboseLogger(i.verbose)
}

func newCommand(i *invocation) *cli.Command {
	return &cli.Command{
		Name:      "cmadison",
		Usage:     "Show package versions in the Ubuntu Cloud Archive, rmadison style",
		ArgsUsage: "package...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Value:   cloudArchive,
				Usage: fmt.Sprintf("Comma-separated `SOURCES` to query: %s, %s",
					cloudArchive, strings.Join(madison.Sources(), ", ")),
			},
			&cli.BoolFlag{
				Name:  "eol",
				Usage: "Include end-of-life cloud archive releases, listed separately",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Do not use cached responses",
			},
			&cli.BoolFlag{
				Name:  "clear-cache",
				Usage: "Remove all cached responses before searching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print progress messages to stderr",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "table",
				Usage: "Output `FORMAT`: table or yaml",
			},
			&cli.StringFlag{
				Name:    "archive-url",
				Value:   archive.DefaultURL,
				Usage:   "`URL` of the cloud archive dists/ directory",
				Sources: cli.EnvVars("CMADISON_ARCHIVE_URL"),
			},
			&cli.StringFlag{
				Name:    "index-files",
				Value:   strings.Join(sources.DefaultIndexFiles, ","),
				Usage:   "Comma-separated index `FILES` to try per release, by extension: .xz, .gz, .zst or uncompressed",
				Sources: cli.EnvVars("CMADISON_INDEX_FILES"),
			},
			&cli.IntFlag{
				Name:  "parallel",
				Value: search.DefaultParallel,
				Usage: "Number of indexes to download concurrently",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Minute,
				Usage: "Timeout of each HTTP request",
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "Cache `DIR` (default: $SNAP_USER_DATA or ~/.cmadison)",
				Sources: cli.EnvVars("CMADISON_CACHE_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Load config from `FILE` (default: ~/.config/cmadison/cmadison.deb822)",
				Sources: cli.EnvVars("CMADISON_CONFIG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, i.configure(cmd)
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one package name is required")
			}
			return i.run(ctx, cmd.Args().Slice())
		},
	}
}

// configure fills i from flags, environment variables and the config file,
// in that order of precedence.
func (i *invocation) configure(cmd *cli.Command) error {
	i.includeEOL = cmd.Bool("eol")
	i.noCache = cmd.Bool("no-cache")
	i.clearCache = cmd.Bool("clear-cache")
	i.verbose = cmd.Bool("verbose")
	i.timeout = cmd.Duration("timeout")

	i.output = cmd.String("output")
	if i.output != "table" && i.output != "yaml" {
		return fmt.Errorf("invalid -output %q: want table or yaml", i.output)
	}

	configPath := cmd.String("config")
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	configPath, err := config.ResolveTilde(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	i.V().Printf("read config from %s: %+v", configPath, cfg)

	i.archiveURL = cmd.String("archive-url")
	if !cmd.IsSet("archive-url") && cfg.ArchiveURL != "" {
		i.archiveURL = cfg.ArchiveURL
	}

	i.parallel = int(cmd.Int("parallel"))
	if !cmd.IsSet("parallel") && cfg.Parallel > 0 {
		i.parallel = cfg.Parallel
	}

	i.indexFiles = splitList(cmd.String("index-files"))
	if !cmd.IsSet("index-files") && len(cfg.IndexFiles) > 0 {
		i.indexFiles = cfg.IndexFiles
	}

	i.sources = splitList(cmd.String("url"))
	if !cmd.IsSet("url") && len(cfg.Sources) > 0 {
		i.sources = cfg.Sources
	}
	if len(i.sources) == 0 {
		return fmt.Errorf("no sources to query")
	}

	i.cacheMaxAge = cfg.CacheMaxAge
	i.cacheSizeLimit = cfg.CacheSizeLimit
	i.cacheDir = cmd.String("cache-dir")
	if i.cacheDir == "" {
		if i.cacheDir, err = httpcache.DefaultDir(); err != nil {
			return err
		}
	}
	if i.cacheDir, err = config.ResolveTilde(i.cacheDir); err != nil {
		return err
	}
	return nil
}

func splitList(s string) []string {
	var list []string
	for _, elem := range strings.Split(s, ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}
	return list
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	i := invocation{stdout: os.Stdout}
	if err := newCommand(&i).Run(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
