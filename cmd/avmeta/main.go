// Command avmeta: scrape and cache metadata for AV video files.
//
//	info        Resolve a filename to its code and print the metadata record
//	rescrape    Ignore the stored record and crawl the sources again
//	downloaded  Report when a file was first marked downloaded
//	mark        Mark a file as downloaded (first mark wins)
//	image       Fetch an image through the cache and print the data URL
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/appdir"
	"github.com/karoyqiu/avmeta/internal/cookiejar"
	"github.com/karoyqiu/avmeta/internal/headless"
	"github.com/karoyqiu/avmeta/internal/httpclient"
	"github.com/karoyqiu/avmeta/internal/imagecache"
	"github.com/karoyqiu/avmeta/internal/library"
	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/scrape/sites"
	"github.com/karoyqiu/avmeta/internal/settings"
	"github.com/karoyqiu/avmeta/internal/translate"
	"github.com/karoyqiu/avmeta/internal/videodb"
)

// app bundles everything a subcommand needs plus the shutdown work.
type app struct {
	lib     *library.Library
	browser *headless.Browser
	images  *imagecache.Cache
	jar     *cookiejar.Jar
	db      *videodb.DB
}

// build wires the full stack: settings, cookie jar, both transports,
// translator, image cache, database, source registry and the facade.
func build(ctx context.Context) (*app, error) {
	cfg, err := settings.Load()
	if err != nil {
		return nil, err
	}
	proxy, err := cfg.Proxy()
	if err != nil {
		return nil, err
	}

	jarPath, err := appdir.File("cookies.json")
	if err != nil {
		return nil, err
	}
	mergePath, _ := appdir.File("cookies-merge.json")
	editPath, _ := appdir.File("cookies.edit.json")
	jar, err := cookiejar.Open(jarPath, mergePath, editPath)
	if err != nil {
		return nil, err
	}

	client := httpclient.New(jar, proxy)
	browser := headless.New(jar, cfg.ProxyURL())
	images, err := imagecache.New(client)
	if err != nil {
		return nil, err
	}

	dbPath, err := appdir.File("videos.db")
	if err != nil {
		return nil, err
	}
	db, err := videodb.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	env := &scrape.Env{
		HTTP:       client,
		Browser:    browser,
		Translator: translate.New(client, translate.DefaultTarget),
	}
	pipeline := scrape.NewPipeline(env, sites.Registry(), sites.NewEnricher(env))

	return &app{
		lib:     library.New(db, pipeline, images),
		browser: browser,
		images:  images,
		jar:     jar,
		db:      db,
	}, nil
}

// close flushes the cookie jar and releases the browser, cache and store.
func (a *app) close() {
	a.browser.Close()
	a.images.Close()
	if err := a.jar.Flush(); err != nil {
		log.Warn().Err(err).Msg("cookie flush failed")
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("database close failed")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <info|rescrape|downloaded|mark|image> [flags] <name>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  info        Resolve a filename and print its metadata record\n")
	fmt.Fprintf(os.Stderr, "  rescrape    Ignore the stored record and crawl again\n")
	fmt.Fprintf(os.Stderr, "  downloaded  Report when a file was first marked downloaded\n")
	fmt.Fprintf(os.Stderr, "  mark        Mark a file as downloaded (first mark wins)\n")
	fmt.Fprintf(os.Stderr, "  image       Fetch an image through the cache, print the data URL\n")
	os.Exit(2)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if v := os.Getenv("AVMETA_LOG"); v != "" {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	infoCmd := flag.NewFlagSet("info", flag.ExitOnError)
	rescrapeCmd := flag.NewFlagSet("rescrape", flag.ExitOnError)

	downloadedCmd := flag.NewFlagSet("downloaded", flag.ExitOnError)
	downloadedHash := downloadedCmd.String("hash", "", "Fallback code when the filename has none (e.g. torrent hash)")

	markCmd := flag.NewFlagSet("mark", flag.ExitOnError)
	markHash := markCmd.String("hash", "", "Fallback code when the filename has none")
	markAt := markCmd.Int64("at", 0, "Download time as Unix seconds (default: now)")

	imageCmd := flag.NewFlagSet("image", flag.ExitOnError)

	if len(os.Args) < 2 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.close()

	switch os.Args[1] {
	case "info", "rescrape":
		cmd, run := infoCmd, a.lib.GetVideoInfo
		if os.Args[1] == "rescrape" {
			cmd, run = rescrapeCmd, a.lib.Rescrape
		}
		_ = cmd.Parse(os.Args[2:])
		if cmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s %s <filename>\n", os.Args[0], os.Args[1])
			os.Exit(2)
		}
		info, err := run(ctx, cmd.Arg(0))
		if err != nil {
			log.Fatal().Err(err).Msg("scrape failed")
		}
		if info == nil {
			log.Info().Str("name", cmd.Arg(0)).Msg("no metadata found")
			os.Exit(1)
		}
		if err := printJSON(info); err != nil {
			log.Fatal().Err(err).Msg("encode failed")
		}

	case "downloaded":
		_ = downloadedCmd.Parse(os.Args[2:])
		if downloadedCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s downloaded [-hash h] <filename>\n", os.Args[0])
			os.Exit(2)
		}
		when, err := a.lib.HasBeenDownloaded(ctx, downloadedCmd.Arg(0), *downloadedHash)
		if err != nil {
			log.Fatal().Err(err).Msg("lookup failed")
		}
		if when == nil {
			fmt.Println("never")
			os.Exit(1)
		}
		fmt.Println(when.Format(time.RFC3339))

	case "mark":
		_ = markCmd.Parse(os.Args[2:])
		if markCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s mark [-hash h] [-at epoch] <filename>\n", os.Args[0])
			os.Exit(2)
		}
		at := time.Now()
		if *markAt != 0 {
			at = time.Unix(*markAt, 0)
		}
		if err := a.lib.MarkAsDownloaded(ctx, markCmd.Arg(0), *markHash, at); err != nil {
			log.Fatal().Err(err).Msg("mark failed")
		}

	case "image":
		_ = imageCmd.Parse(os.Args[2:])
		if imageCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s image <url>\n", os.Args[0])
			os.Exit(2)
		}
		dataURL, err := a.lib.DownloadImage(ctx, imageCmd.Arg(0))
		if err != nil {
			log.Fatal().Err(err).Msg("image fetch failed")
		}
		fmt.Println(dataURL)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		usage()
	}
}
