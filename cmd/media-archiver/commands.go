package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/acquire"
	"github.com/alanbriolat/media-archiver/analysis"
	"github.com/alanbriolat/media-archiver/internal/history"
	"github.com/alanbriolat/media-archiver/mediatype"
	"github.com/alanbriolat/media-archiver/scrape"
)

// withComponents runs f with components built from the effective configuration.
func withComponents(ctx context.Context, c *cli.Context, f func(*components) error) error {
	cfg, err := loadConfig(ctx, c)
	if err != nil {
		return err
	}
	comp, err := build(cfg)
	if err != nil {
		return err
	}
	defer comp.close(ctx)
	return f(comp)
}

func isLocalFile(arg string) bool {
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}

func acquireCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Usage:     "download the media from each URL into the images or videos directory",
		ArgsUsage: "URL...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("at least one URL is required", 2)
			}
			return withComponents(ctx, c, func(comp *components) error {
				pipeline, err := comp.pipeline()
				if err != nil {
					return err
				}
				failed := 0
				for _, rawURL := range c.Args().Slice() {
					_, outcome := pipeline.Run(ctx, rawURL)
					comp.progress.finish()
					if acquired, ok := outcome.(acquire.Acquired); ok {
						fmt.Fprintln(c.App.Writer, acquired.File.Path)
					} else {
						failed++
						fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", rawURL, outcome)
					}
					if ctx.Err() != nil {
						return ctx.Err()
					}
				}
				if failed > 0 {
					return cli.Exit(fmt.Sprintf("%d of %d URLs failed", failed, c.NArg()), 1)
				}
				return nil
			})
		},
	}
}

func classifyCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "show the platform and media kind of URLs, or the kind of local files",
		ArgsUsage: "URL|PATH...",
		Action: func(c *cli.Context) error {
			return withComponents(ctx, c, func(comp *components) error {
				for _, arg := range c.Args().Slice() {
					if isLocalFile(arg) {
						fmt.Fprintf(c.App.Writer, "%s\tkind=%s\n", arg, mediatype.ClassifyPath(arg))
						continue
					}
					platform := comp.platforms.Classify(ctx, arg)
					kind := comp.kinds.ClassifyURL(ctx, arg)
					fmt.Fprintf(c.App.Writer, "%s\tplatform=%s\tkind=%s\n", arg, platform, kind)
				}
				return nil
			})
		},
	}
}

func scrapeCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "list the candidate media URLs on a page",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "generic",
				Usage: "collect all images and videos, not just Facebook CDN media",
			},
			&cli.BoolFlag{
				Name:  "classify",
				Usage: "also show the media kind of each candidate",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one URL is required", 2)
			}
			return withComponents(ctx, c, func(comp *components) error {
				scraper := comp.scraper
				if c.Bool("generic") {
					scraper = scrape.New(comp.renderer, scrape.WithRules(scrape.GenericRules()))
				}
				for _, link := range scraper.Scrape(ctx, c.Args().First()) {
					if c.Bool("classify") {
						ref := media_archiver.Reference{URL: link, Kind: comp.kinds.ClassifyURL(ctx, link)}
						fmt.Fprintln(c.App.Writer, ref)
					} else {
						fmt.Fprintln(c.App.Writer, link)
					}
				}
				return nil
			})
		},
	}
}

func analyzeCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "acquire a URL (or take a local file) and run detection or a document scan on it",
		ArgsUsage: "URL|PATH | --text TEXT...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "detector-url",
				Usage:   "media detector endpoint",
				EnvVars: []string{envPrefix + "DETECTOR_URL"},
			},
			&cli.StringFlag{
				Name:    "scorer-url",
				Usage:   "paragraph scorer endpoint",
				EnvVars: []string{envPrefix + "SCORER_URL"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the result as JSON",
			},
			&cli.BoolFlag{
				Name:  "text",
				Usage: "scan the arguments as pasted text instead of a URL or path",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("text") {
				if c.NArg() == 0 {
					return cli.Exit("no text provided", 2)
				}
			} else if c.NArg() != 1 {
				return cli.Exit("exactly one URL or path is required", 2)
			}
			return withComponents(ctx, c, func(comp *components) error {
				if c.IsSet("detector-url") {
					comp.config.DetectorURL = c.String("detector-url")
				}
				if c.IsSet("scorer-url") {
					comp.config.ScorerURL = c.String("scorer-url")
				}
				if c.Bool("text") {
					result, err := comp.analyzer().AnalyzeText(ctx, strings.Join(c.Args().Slice(), " "))
					return reportResult(ctx, c, result, err)
				}
				path := c.Args().First()
				if !isLocalFile(path) {
					pipeline, err := comp.pipeline()
					if err != nil {
						return err
					}
					_, outcome := pipeline.Run(ctx, path)
					comp.progress.finish()
					acquired, ok := outcome.(acquire.Acquired)
					if !ok {
						return cli.Exit(outcome.String(), 1)
					}
					path = acquired.File.Path
				}

				result, err := comp.analyzer().Analyze(ctx, path)
				return reportResult(ctx, c, result, err)
			})
		},
	}
}

func reportResult(ctx context.Context, c *cli.Context, result analysis.Result, err error) error {
	if result.Verdict == nil && result.Report == nil {
		return err
	} else if err != nil {
		media_archiver.Logger(ctx).Sugar().Warnf("analysis incomplete: %v", err)
	}
	if c.Bool("json") {
		encoder := json.NewEncoder(c.App.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	printResult(c, result)
	return nil
}

func printResult(c *cli.Context, result analysis.Result) {
	if result.Verdict != nil {
		fmt.Fprintf(c.App.Writer, "%s (%s): %s\n", result.Path, result.Kind, result.Verdict)
	}
	if result.Report != nil {
		for i, score := range result.Report.Scores {
			if score.Source != "" {
				fmt.Fprintf(c.App.Writer, "paragraph %d: %s (source: %s)\n", i+1, score.Label, score.Source)
			} else {
				fmt.Fprintf(c.App.Writer, "paragraph %d: %s\n", i+1, score.Label)
			}
		}
		name := result.Path
		if name == "" {
			name = "text"
		}
		fmt.Fprintf(c.App.Writer, "%s: %s\n", name, result.Report.Summary)
	}
}

func historyCommand(ctx context.Context) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list recorded acquisitions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "show only the last `N` records",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(ctx, c)
			if err != nil {
				return err
			}
			if cfg.HistoryPath == "" {
				return cli.Exit("no history file configured (use --history)", 2)
			}
			store, err := history.Open(cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()
			records, err := store.List()
			if err != nil {
				return err
			}
			if limit := c.Int("limit"); limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}
			for _, r := range records {
				detail := r.Path
				if r.Status != history.StatusAcquired {
					detail = r.Reason
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\t%s\n", r.At.Local().Format("2006-01-02 15:04:05"), r.Status, r.Platform, r.URL, detail)
			}
			return nil
		},
	}
}
