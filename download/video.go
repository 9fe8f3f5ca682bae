package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/media-archiver"
)

// ErrUnsupported is returned by a VideoFetcher that can't handle the URL at all, as opposed to failing part way.
var ErrUnsupported = errors.New("no video backend supports this URL")

// A VideoFetcher downloads the best available video (with audio, muxed into one file) from a page URL.
type VideoFetcher interface {
	Name() string
	// FetchVideo writes {dir}/{stem}.{ext} and returns ext (without the dot).
	FetchVideo(ctx context.Context, url string, dir string, stem string) (string, error)
}

// Chain tries each VideoFetcher in turn until one succeeds.
type Chain []VideoFetcher

func (c Chain) Name() string {
	return "chain"
}

// FetchVideo returns the first success. If every fetcher fails the errors are aggregated, so the result matches
// ErrUnsupported if any fetcher was unsupported.
func (c Chain) FetchVideo(ctx context.Context, url string, dir string, stem string) (string, error) {
	if len(c) == 0 {
		return "", ErrUnsupported
	}
	logger := media_archiver.Logger(ctx).Sugar()
	var result *multierror.Error
	for _, fetcher := range c {
		ext, err := fetcher.FetchVideo(ctx, url, dir, stem)
		if err == nil {
			return ext, nil
		}
		logger.Infof("video backend %s failed: %v", fetcher.Name(), err)
		result = multierror.Append(result, fmt.Errorf("%s: %w", fetcher.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", result.ErrorOrNil()
}

// Video fetches platform videos through a VideoFetcher, naming the result {platform}_{N}.{ext}.
type Video struct {
	fetcher VideoFetcher
	timeout time.Duration
}

// NewVideo creates a Video strategy; a timeout of 0 means no limit beyond the context.
func NewVideo(fetcher VideoFetcher, timeout time.Duration) *Video {
	return &Video{fetcher: fetcher, timeout: timeout}
}

// Fetch downloads the video at url into dir. There is no retry. Errors wrap media_archiver.ErrFetch, and also
// ErrUnsupported if no backend could handle the URL.
func (v *Video) Fetch(ctx context.Context, platform media_archiver.Platform, url string, dir string) (media_archiver.AcquiredFile, error) {
	logger := media_archiver.Logger(ctx).Sugar()
	var result media_archiver.AcquiredFile
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	prefix := platform.String()
	err := WithDownloadState(ctx, func(state *DownloadState) error {
		stem := fmt.Sprintf("%s_temp-%s", prefix, uuid.NewString())
		ext, err := v.fetcher.FetchVideo(ctx, url, state.TempDir(), stem)
		if err != nil {
			return err
		}
		tempPath := filepath.Join(state.TempDir(), stem+"."+ext)
		if _, err := os.Stat(tempPath); err != nil {
			return fmt.Errorf("video backend reported %s but it is missing: %w", tempPath, err)
		}
		result.Path, err = state.CommitNumbered(tempPath, prefix, "."+ext)
		return err
	}, WithTargetDir(dir))
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", media_archiver.ErrFetch, url, err)
	}

	result.Hint = media_archiver.KindVideo
	logger.Infof("fetched video %s to %s", url, result.Path)
	return result, nil
}
