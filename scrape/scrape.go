// Package scrape renders a page and collects candidate media URLs from it.
package scrape

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/generic"
	"github.com/alanbriolat/media-archiver/render"
)

// A Group is one selector pass; its results are kept only if the attribute contains the CDN fragment.
type Group struct {
	Name      string
	Selector  string
	Attribute string
}

type Rules struct {
	// WaitSelector is waited on (softly) before extraction, to give script-rendered media a chance to appear.
	WaitSelector string
	// Groups are scanned in priority order.
	Groups []Group
	// CDNFragment filters every group's URLs.
	CDNFragment string
}

func DefaultRules() Rules {
	return Rules{
		WaitSelector: "video, img[data-visualcompletion='media-vc-image'], img[src*='scontent']",
		Groups: []Group{
			{Name: "videos", Selector: "video", Attribute: "src"},
			{Name: "media images", Selector: "img[data-visualcompletion='media-vc-image']", Attribute: "src"},
			{Name: "content images", Selector: "img[src*='scontent']", Attribute: "src"},
		},
		CDNFragment: "fbcdn.net",
	}
}

// GenericRules collect every video and image on a page, with no CDN restriction, for sites without dedicated rules.
func GenericRules() Rules {
	return Rules{
		WaitSelector: "video, img",
		Groups: []Group{
			{Name: "videos", Selector: "video[src]", Attribute: "src"},
			{Name: "video sources", Selector: "video source[src]", Attribute: "src"},
			{Name: "images", Selector: "img[src]", Attribute: "src"},
		},
	}
}

type Scraper struct {
	renderer        render.Renderer
	rules           Rules
	navigateTimeout time.Duration
	selectorTimeout time.Duration
}

type Option func(*Scraper)

func WithRules(rules Rules) Option {
	return func(s *Scraper) {
		s.rules = rules
	}
}

func WithTimeouts(navigate time.Duration, selector time.Duration) Option {
	return func(s *Scraper) {
		s.navigateTimeout = navigate
		s.selectorTimeout = selector
	}
}

func New(renderer render.Renderer, opts ...Option) *Scraper {
	s := &Scraper{
		renderer:        renderer,
		rules:           DefaultRules(),
		navigateTimeout: 60 * time.Second,
		selectorTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns the page's candidate media URLs, deduplicated, in group priority then document order. It never
// fails: any fault truncates the result to what was collected before it.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) []string {
	logger := media_archiver.Logger(ctx).Sugar().Named("scrape")
	links := s.collect(ctx, pageURL, logger)
	unique := Dedup(links)
	logger.Debugf("scraped media links: %v", unique)
	return unique
}

func (s *Scraper) collect(ctx context.Context, pageURL string, logger *zap.SugaredLogger) (links []string) {
	session, err := s.renderer.Open(ctx)
	if err != nil {
		logger.Warnf("failed to open render session: %v", err)
		return nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debugf("failed to close render session: %v", err)
		}
	}()

	if err := session.Navigate(ctx, pageURL, s.navigateTimeout); err != nil {
		logger.Warnf("error during scraping: %v", err)
		return nil
	}
	if err := session.WaitFor(ctx, s.rules.WaitSelector, s.selectorTimeout); err != nil {
		logger.Warnf("media selector not found within %s", s.selectorTimeout)
	}

	for _, group := range s.rules.Groups {
		elements, err := session.QueryAll(ctx, group.Selector)
		if err != nil {
			logger.Warnf("error during scraping %s: %v", group.Name, err)
			return links
		}
		for _, el := range elements {
			src, ok := el.Attribute(group.Attribute).Filter(s.fromCDN).Get()
			if ok {
				if src, ok = resolve(pageURL, src); ok {
					links = append(links, src)
				}
			}
		}
	}
	return links
}

func (s *Scraper) fromCDN(src string) bool {
	return src != "" && strings.Contains(src, s.rules.CDNFragment)
}

// resolve makes a relative src absolute; absolute URLs are returned unchanged and inline data is dropped.
func resolve(pageURL string, src string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", false
		}
		return src, true
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// Dedup removes repeated URLs by exact string equality, keeping the first occurrence.
func Dedup(links []string) []string {
	return generic.NewOrderedSet(links...).ToSlice()
}
