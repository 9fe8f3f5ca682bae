package acquire

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/media-archiver"
)

// Scraper collects candidate media URLs from a page. An empty result is not an error.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) []string
}

// KindClassifier classifies a remote media URL.
type KindClassifier interface {
	ClassifyURL(ctx context.Context, rawURL string) media_archiver.Kind
}

// VideoStrategy is the specialized video fetch.
type VideoStrategy interface {
	Fetch(ctx context.Context, platform media_archiver.Platform, url string, dir string) (media_archiver.AcquiredFile, error)
}

// DownloadStrategy is the generic download of a single media URL.
type DownloadStrategy interface {
	Fetch(ctx context.Context, mediaURL string, dir string) (media_archiver.AcquiredFile, error)
}

type Orchestrator struct {
	dirs        media_archiver.Dirs
	scraper     Scraper
	siteScraper Scraper
	classifier  KindClassifier
	video       VideoStrategy
	download    DownloadStrategy
}

type Option func(*Orchestrator)

// WithSiteScraper sets the scraper for PlatformGeneric pages, which otherwise use the same scraper as Facebook.
func WithSiteScraper(scraper Scraper) Option {
	return func(o *Orchestrator) {
		o.siteScraper = scraper
	}
}

func NewOrchestrator(dirs media_archiver.Dirs, scraper Scraper, classifier KindClassifier, video VideoStrategy, download DownloadStrategy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dirs:       dirs,
		scraper:    scraper,
		classifier: classifier,
		video:      video,
		download:   download,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.siteScraper == nil {
		o.siteScraper = o.scraper
	}
	return o
}

// candidates is a CandidateSet partitioned by kind, each in scrape order.
type candidates struct {
	videos []string
	images []string
	// first is the kind of the first classifiable candidate.
	first media_archiver.Kind
}

func (c candidates) empty() bool {
	return len(c.videos) == 0 && len(c.images) == 0
}

// attempt tracks the strategy failures of one acquisition.
type attempt struct {
	logger *zap.SugaredLogger
	errs   *multierror.Error
}

func (a *attempt) fail(strategy string, err error) {
	a.logger.Warnf("%s failed: %v", strategy, err)
	a.errs = multierror.Append(a.errs, fmt.Errorf("%s: %w", strategy, err))
}

// notFound ends the acquisition with nothing usable; earlier failures make it an exhausted fallback.
func (a *attempt) notFound(reason string) Outcome {
	a.logger.Infof("no media found: %s", reason)
	if a.errs == nil {
		return NotFound{Reason: reason, Err: media_archiver.ErrEmptyResult}
	}
	a.errs = multierror.Append(a.errs, media_archiver.ErrEmptyResult)
	return NotFound{Reason: reason, Err: fmt.Errorf("%w: %w", media_archiver.ErrExhaustedFallback, a.errs)}
}

func (a *attempt) failed(reason string) Outcome {
	return Failed{Reason: reason, Err: a.errs.ErrorOrNil()}
}

// Acquire runs the strategies for the request's platform and shape, producing at most one file.
func (o *Orchestrator) Acquire(ctx context.Context, req Request) Outcome {
	logger := media_archiver.Logger(ctx).Sugar().Named("acquire").With("request", req.ID)
	a := &attempt{logger: logger}
	logger.Infof("acquiring %s", req)

	switch req.Platform {
	case media_archiver.PlatformYouTube:
		return o.youtube(ctx, req, a)
	case media_archiver.PlatformFacebook:
		if req.Shape == ShapeFacebookVideo {
			return o.facebookVideo(ctx, req, a)
		}
		return o.facebookPhoto(ctx, req, a)
	case media_archiver.PlatformGeneric:
		return o.site(ctx, req, a)
	default:
		logger.Warnf("unsupported platform for %s", req.URL)
		return Failed{Reason: "unsupported or invalid URL", Err: media_archiver.ErrUnsupportedPlatform}
	}
}

// YouTube has no scraping fallback.
func (o *Orchestrator) youtube(ctx context.Context, req Request, a *attempt) Outcome {
	file, err := o.video.Fetch(ctx, req.Platform, req.URL, o.dirs.Videos)
	if err != nil {
		a.fail("video fetch", err)
		return a.failed("video fetch failed")
	}
	return Acquired{File: file}
}

func (o *Orchestrator) facebookVideo(ctx context.Context, req Request, a *attempt) Outcome {
	file, err := o.video.Fetch(ctx, req.Platform, req.URL, o.dirs.Videos)
	if err == nil {
		return Acquired{File: file}
	}
	a.fail("video fetch", err)
	a.logger.Info("falling back to scraping")

	found := o.classify(ctx, o.scraper.Scrape(ctx, req.URL), a.logger)
	if len(found.videos) > 0 {
		return o.fetch(ctx, found.videos[0], media_archiver.KindVideo, a)
	} else if len(found.images) > 0 {
		return o.fetch(ctx, found.images[0], media_archiver.KindImage, a)
	}
	return a.notFound("no media on page after video fetch failed")
}

func (o *Orchestrator) facebookPhoto(ctx context.Context, req Request, a *attempt) Outcome {
	found := o.classify(ctx, o.scraper.Scrape(ctx, req.URL), a.logger)
	if len(found.videos) > 0 {
		return o.fetch(ctx, found.videos[0], media_archiver.KindVideo, a)
	}
	if len(found.images) == 0 {
		return a.notFound("no media on page")
	}
	index := photoIndex(req.Parsed) - 1
	if index < 0 || index >= len(found.images) {
		a.logger.Warnf("photo index %d out of range for %d images, using the first", index+1, len(found.images))
		index = 0
	}
	return o.fetch(ctx, found.images[index], media_archiver.KindImage, a)
}

// site handles pages on hosts explicitly allowed for direct scraping. Unclassifiable candidates are skipped, and
// the usual tie-break applies: first video, else first image.
func (o *Orchestrator) site(ctx context.Context, req Request, a *attempt) Outcome {
	found := o.classify(ctx, o.siteScraper.Scrape(ctx, req.URL), a.logger)
	if found.empty() {
		return a.notFound("no media on page")
	}
	if found.first != media_archiver.KindVideo && len(found.videos) > 0 {
		a.logger.Debugf("mixed media on page, preferring video over first candidate (%s)", found.first)
	}
	if len(found.videos) > 0 {
		return o.fetch(ctx, found.videos[0], media_archiver.KindVideo, a)
	}
	return o.fetch(ctx, found.images[0], media_archiver.KindImage, a)
}

// fetch downloads the chosen candidate into the directory for its kind. A failure here is final for the request.
func (o *Orchestrator) fetch(ctx context.Context, mediaURL string, kind media_archiver.Kind, a *attempt) Outcome {
	a.logger.Infof("downloading %s %s", kind, mediaURL)
	file, err := o.download.Fetch(ctx, mediaURL, o.dirs.For(kind))
	if err != nil {
		a.fail("download", err)
		return a.failed(fmt.Sprintf("failed to download %s", mediaURL))
	}
	if file.Hint == media_archiver.KindUnknown {
		file.Hint = kind
	}
	return Acquired{File: file}
}

func (o *Orchestrator) classify(ctx context.Context, links []string, logger *zap.SugaredLogger) candidates {
	var found candidates
	for _, link := range links {
		kind := o.classifier.ClassifyURL(ctx, link)
		logger.Debugf("candidate %s", media_archiver.Reference{URL: link, Kind: kind})
		switch kind {
		case media_archiver.KindVideo:
			found.videos = append(found.videos, link)
		case media_archiver.KindImage:
			found.images = append(found.images, link)
		default:
			continue
		}
		if found.first == media_archiver.KindUnknown {
			found.first = kind
		}
	}
	logger.Infof("found %d video and %d image candidates", len(found.videos), len(found.images))
	return found
}
