package download

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/internal/httpclient"
	"github.com/alanbriolat/media-archiver/mediatype"
	"github.com/alanbriolat/media-archiver/util"
)

// defaultBasename is used when the URL path has no usable last element.
const defaultBasename = "download"

// Getter is the part of httpclient.Client used for streaming downloads.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration) (*httpclient.Response, error)
}

// Generic downloads a single media URL by streaming GET, keeping the URL's filename.
type Generic struct {
	client   Getter
	timeout  time.Duration
	progress ProgressFunc
}

type GenericOption func(*Generic)

func WithGetTimeout(timeout time.Duration) GenericOption {
	return func(g *Generic) {
		g.timeout = timeout
	}
}

// WithProgress sets a callback for progress updates, called from the downloading goroutine.
func WithProgress(f ProgressFunc) GenericOption {
	return func(g *Generic) {
		g.progress = f
	}
}

func NewGeneric(client Getter, opts ...GenericOption) *Generic {
	g := &Generic{
		client:  client,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch downloads mediaURL into dir. The file is named after the last element of the URL path, with an extension
// derived from the response content type if the name has none. Nothing is left in dir unless the whole body was
// written. Errors wrap media_archiver.ErrFetch.
func (g *Generic) Fetch(ctx context.Context, mediaURL string, dir string) (media_archiver.AcquiredFile, error) {
	logger := media_archiver.Logger(ctx).Sugar()
	var result media_archiver.AcquiredFile

	resp, err := g.client.Get(ctx, mediaURL, g.timeout)
	if err != nil {
		return result, fmt.Errorf("%w: %w", media_archiver.ErrFetch, err)
	}
	defer resp.Close()

	name, err := util.FilenameFromURLString(mediaURL)
	if err != nil {
		logger.Debugf("no filename in %q, using %q", mediaURL, defaultBasename)
		name = defaultBasename
	}
	if filepath.Ext(name) == "" {
		name += mediatype.ExtensionFor(resp.ContentType())
	}

	var options []DownloadConfigOption
	options = append(options, WithTargetDir(dir))
	if g.progress != nil {
		options = append(options, WithProgressCallback(g.progress))
	}
	err = WithDownloadState(ctx, func(state *DownloadState) error {
		state.AddExpectedBytes(resp.ContentLength)
		tempPath, err := state.SaveStream(ctx, name+".*.part", resp.Body)
		if err != nil {
			return err
		}
		result.Path, err = state.Commit(tempPath, name)
		return err
	}, options...)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", media_archiver.ErrFetch, mediaURL, err)
	}

	result.Hint = mediatype.KindOfExtension(filepath.Ext(name))
	if result.Hint == media_archiver.KindUnknown {
		result.Hint = mediatype.KindOfContentType(resp.ContentType())
	}
	logger.Infof("downloaded %s to %s", mediaURL, result.Path)
	return result, nil
}
