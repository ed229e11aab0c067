package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/config"
	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/andresuchdata/gallery-feed/internal/drive"
	"github.com/andresuchdata/gallery-feed/internal/feed"
	"github.com/andresuchdata/gallery-feed/internal/gallery"
	"github.com/andresuchdata/gallery-feed/internal/metadata"
	"github.com/andresuchdata/gallery-feed/pkg/logger"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newSortFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "sort",
		Usage: "Sort order: newest, oldest or alphabetical",
		Value: string(domain.SortNewest),
	}
}

func newJSONFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print items as JSON instead of a table",
	}
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	app := &cli.App{
		Name:  "gallery",
		Usage: "Read the gallery feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   cfg.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "feed",
				Usage: "Fetch the feed from a running gallery server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "url",
						Usage:   "Base URL of the gallery server",
						EnvVars: []string{"FEED_BASE_URL"},
						Value:   cfg.Feed.BaseURL,
					},
					newSortFlag(),
					newJSONFlag(),
					&cli.BoolFlag{
						Name:  "fresh",
						Usage: "Bypass the local cache",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Keep refreshing and print the feed after every interval",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Refresh interval for --watch",
						Value: cfg.FeedRefreshInterval(),
					},
				},
				Action: func(c *cli.Context) error {
					return runFeed(c, cfg)
				},
			},
			{
				Name:  "aggregate",
				Usage: "Aggregate the Drive folder directly, without a server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "folder",
						Usage:   "Google Drive folder ID",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
						Value:   cfg.Google.DriveFolderID,
					},
					newSortFlag(),
					newJSONFlag(),
				},
				Action: func(c *cli.Context) error {
					return runAggregate(c, cfg)
				},
			},
			{
				Name:  "download",
				Usage: "Download the gallery images to a local directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "folder",
						Usage:   "Google Drive folder ID",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
						Value:   cfg.Google.DriveFolderID,
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Destination directory",
						Value: "./data/gallery",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Download files that already exist locally again",
					},
				},
				Action: func(c *cli.Context) error {
					return runDownload(c, cfg)
				},
			},
			{
				Name:      "find-folder",
				Usage:     "Print the ID of a Drive folder given its path from My Drive",
				ArgsUsage: "<path/to/folder>",
				Action: func(c *cli.Context) error {
					return runFindFolder(c, cfg)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("gallery command failed")
	}
}

func runFeed(c *cli.Context, cfg *config.Config) error {
	criterion, err := domain.ParseSortCriterion(c.String("sort"))
	if err != nil {
		return err
	}

	client := feed.NewClient(c.String("url"), cfg.FeedTTL(), feed.WithTimeout(cfg.FeedTimeout()))

	items, err := client.Sorted(c.Context, c.Bool("fresh"), criterion)
	if err != nil {
		return err
	}
	if err := printItems(c.App.Writer, items, c.Bool("json")); err != nil {
		return err
	}

	if !c.Bool("watch") {
		return nil
	}

	interval := c.Duration("interval")
	done := client.StartAutoRefresh(c.Context, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Context.Done():
			<-done
			return nil
		case <-ticker.C:
			snap := client.Snapshot()
			if snap.LastError != nil {
				logger.Log.Warn().Err(snap.LastError).Msg("feed refresh failed, showing previous items")
			}
			fmt.Fprintf(c.App.Writer, "\n# %s, fetched %s\n", snap.State, snap.FetchedAt.Format(time.RFC3339))
			if err := printItems(c.App.Writer, gallery.Sort(snap.Items, criterion), c.Bool("json")); err != nil {
				return err
			}
		}
	}
}

func runAggregate(c *cli.Context, cfg *config.Config) error {
	criterion, err := domain.ParseSortCriterion(c.String("sort"))
	if err != nil {
		return err
	}

	driveService, err := newDriveService(c.Context, cfg)
	if err != nil {
		return err
	}

	downloads := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	aggregator := gallery.NewAggregator(gallery.AggregatorConfig{
		FolderID:    c.String("folder"),
		PageSize:    cfg.Gallery.PageSize,
		Concurrency: cfg.Gallery.Concurrency,
	}, driveService, driveService, metadata.NewExtractor(downloads, drive.DownloadURL), nil)

	items, err := aggregator.Aggregate(c.Context)
	if err != nil {
		return err
	}
	return printItems(c.App.Writer, gallery.Sort(items, criterion), c.Bool("json"))
}

func runDownload(c *cli.Context, cfg *config.Config) error {
	driveService, err := newDriveService(c.Context, cfg)
	if err != nil {
		return err
	}

	paths, err := drive.NewDownloader(driveService).DownloadImages(c.Context, drive.DownloadOptions{
		FolderID:    c.String("folder"),
		DownloadDir: c.String("dir"),
		PageSize:    cfg.Gallery.PageSize,
		Overwrite:   c.Bool("overwrite"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d images in %s\n", len(paths), c.String("dir"))
	return nil
}

func runFindFolder(c *cli.Context, cfg *config.Config) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}

	driveService, err := newDriveService(c.Context, cfg)
	if err != nil {
		return err
	}

	id, err := driveService.FindFolderByPath(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func newDriveService(ctx context.Context, cfg *config.Config) (*drive.Service, error) {
	googleClient, err := drive.NewHTTPClient(ctx, drive.Credentials{
		ClientID:        cfg.Google.ClientID,
		ClientSecret:    cfg.Google.ClientSecret,
		RedirectURI:     cfg.Google.RedirectURI,
		RefreshToken:    cfg.Google.RefreshToken,
		CredentialsJSON: cfg.Google.CredentialsJSON,
	})
	if err != nil {
		return nil, err
	}
	return drive.NewService(ctx, googleClient)
}

func printItems(w io.Writer, items []domain.GalleryItem, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAKEN\tCREATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Title, formatDate(it.TakenDate), formatDate(it.CreatedTime))
	}
	fmt.Fprintf(tw, "\n%d items\n", len(items))
	return tw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
