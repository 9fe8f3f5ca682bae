package main

import (
	"context"
	"fmt"
	"time"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/acquire"
	"github.com/alanbriolat/media-archiver/analysis"
	"github.com/alanbriolat/media-archiver/download"
	"github.com/alanbriolat/media-archiver/download/youtube"
	"github.com/alanbriolat/media-archiver/download/ytdlp"
	"github.com/alanbriolat/media-archiver/internal/history"
	"github.com/alanbriolat/media-archiver/internal/httpclient"
	"github.com/alanbriolat/media-archiver/mediatype"
	"github.com/alanbriolat/media-archiver/render"
	"github.com/alanbriolat/media-archiver/render/chrome"
	"github.com/alanbriolat/media-archiver/render/static"
	"github.com/alanbriolat/media-archiver/route"
	"github.com/alanbriolat/media-archiver/scrape"
)

// loadConfig reads the config file and applies command line overrides.
func loadConfig(ctx context.Context, c *cli.Context) (media_archiver.Config, error) {
	logger := media_archiver.Logger(ctx).Sugar()
	cfg, err := media_archiver.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("renderer") {
		cfg.Renderer = c.String("renderer")
	}
	if c.IsSet("ytdlp") {
		cfg.YtDlpPath = c.String("ytdlp")
	}
	if c.IsSet("history") {
		cfg.HistoryPath = c.String("history")
	}

	if changes, err := diff.Diff(media_archiver.DefaultConfig(), cfg); err != nil {
		logger.Errorf("failed to diff config against defaults: %v", err)
	} else {
		for _, change := range changes {
			logger.Debugf("config: %v: %#v -> %#v", change.Path, change.From, change.To)
		}
	}
	return cfg, nil
}

// components is everything built from a Config, owned by one command invocation.
type components struct {
	config       media_archiver.Config
	client       *httpclient.Client
	renderer     render.Renderer
	platforms    *media_archiver.PlatformClassifier
	kinds        *mediatype.Classifier
	scraper      *scrape.Scraper
	siteRules    scrape.Rules
	generic      *download.Generic
	progress     *progress
	history      *history.Store
	orchestrator *acquire.Orchestrator
}

func build(cfg media_archiver.Config) (*components, error) {
	c := &components{config: cfg, progress: &progress{}}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = render.DefaultUserAgent
	}
	c.client = httpclient.New(httpclient.Options{
		UserAgent:         userAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	})

	switch cfg.Renderer {
	case "chrome":
		c.renderer = chrome.New(render.Options{UserAgent: userAgent})
	case "static":
		c.renderer = static.New(c.client)
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}

	registry := media_archiver.DefaultPlatformRegistry.Clone()
	if len(cfg.ScrapeHosts) > 0 {
		registry.MustAdd(media_archiver.PlatformRule{
			Name:     "scrape-hosts",
			Platform: media_archiver.PlatformGeneric,
			Match:    media_archiver.HostContains(cfg.ScrapeHosts...),
			Priority: media_archiver.PriorityLowest,
		})
	}
	c.platforms = media_archiver.NewPlatformClassifier(registry, c.renderer)
	c.platforms.NavigateTimeout = time.Duration(cfg.Timeouts.Navigate)
	c.platforms.ReadyTimeout = time.Duration(cfg.Timeouts.Ready)

	c.kinds = mediatype.NewClassifier(c.client, time.Duration(cfg.Timeouts.Head))
	timeouts := scrape.WithTimeouts(time.Duration(cfg.Timeouts.Navigate), time.Duration(cfg.Timeouts.Selector))
	c.scraper = scrape.New(c.renderer, timeouts)
	c.generic = download.NewGeneric(c.client,
		download.WithGetTimeout(time.Duration(cfg.Timeouts.Get)),
		download.WithProgress(c.progress.update))

	var backends download.Chain
	for _, name := range cfg.VideoBackends {
		switch name {
		case "ytdlp":
			backends = append(backends, ytdlp.New(cfg.YtDlpPath))
		case "youtube":
			backends = append(backends, youtube.New())
		default:
			return nil, fmt.Errorf("unknown video backend %q", name)
		}
	}
	video := download.NewVideo(backends, time.Duration(cfg.Timeouts.VideoFetch))

	c.orchestrator = acquire.NewOrchestrator(cfg.Dirs(), c.scraper, c.kinds, video, c.generic,
		acquire.WithSiteScraper(scrape.New(c.renderer, timeouts, scrape.WithRules(scrape.GenericRules()))))
	return c, nil
}

// pipeline opens the history store, if configured, so it must be followed by close.
func (c *components) pipeline() (*acquire.Pipeline, error) {
	if err := c.config.Dirs().Ensure(); err != nil {
		return nil, err
	}
	p := acquire.NewPipeline(c.platforms, c.orchestrator, route.New(c.config.Dirs()))
	if c.config.HistoryPath != "" {
		store, err := history.Open(c.config.HistoryPath)
		if err != nil {
			return nil, err
		}
		c.history = store
		p.AddObserver(store.Observer())
	}
	return p, nil
}

func (c *components) analyzer() *analysis.Analyzer {
	a := &analysis.Analyzer{}
	timeout := time.Duration(c.config.Timeouts.Get)
	if c.config.DetectorURL != "" {
		a.Detector = analysis.NewRemoteDetector(c.client, c.config.DetectorURL, timeout)
	}
	if c.config.ScorerURL != "" {
		a.Scorer = analysis.NewRemoteScorer(c.client, c.config.ScorerURL, timeout)
	}
	return a
}

func (c *components) close(ctx context.Context) {
	c.progress.finish()
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			media_archiver.Logger(ctx).Sugar().Warnf("failed to close history: %v", err)
		}
	}
}

// progress shows a progress bar for the current generic download. If drawing fails the bar is dropped for the rest
// of the run; the download itself carries on.
type progress struct {
	bar    *progressbar.ProgressBar
	newBar func() *progressbar.ProgressBar
	broken bool
}

func (p *progress) update(downloaded int64, expected int64) {
	if p.broken {
		return
	}
	if p.bar == nil {
		if p.newBar != nil {
			p.bar = p.newBar()
		} else {
			p.bar = progressbar.DefaultBytes(-1, "downloading")
		}
	}
	if expected > 0 && p.bar.GetMax() != int(expected) {
		p.bar.ChangeMax(int(expected))
	}
	if err := p.bar.Set(int(downloaded)); err != nil {
		zap.S().Named("progress").Warnf("disabling progress bar: %v", err)
		p.bar = nil
		p.broken = true
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
