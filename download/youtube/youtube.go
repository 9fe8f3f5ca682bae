// Package youtube is a VideoFetcher for YouTube URLs, using the kkdai/youtube client rather than an external tool.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/download"
)

var ErrNoFormat = errors.New("no format with both audio and video")

type Downloader struct {
	client youtube.Client
}

func New() *Downloader {
	return &Downloader{}
}

func (d *Downloader) Name() string {
	return "youtube"
}

// FetchVideo downloads the best format that already has audio and video muxed together. URLs that aren't YouTube
// videos are download.ErrUnsupported.
func (d *Downloader) FetchVideo(ctx context.Context, videoURL string, dir string, stem string) (string, error) {
	logger := media_archiver.Logger(ctx).Sugar().Named("youtube")
	parsedURL, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", download.ErrUnsupported, err)
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", download.ErrUnsupported, err)
	}

	video, err := d.client.GetVideoContext(ctx, canonicalURL(videoID))
	if err != nil {
		return "", fmt.Errorf("failed to get video info: %w", err)
	}
	format, err := selectFormat(video.Formats)
	if err != nil {
		return "", err
	}
	ext := extensionOf(format.MimeType)
	logger.Debugf("selected format %d (%s, %s) for %q", format.ItagNo, format.MimeType, format.QualityLabel, video.Title)

	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	f, err := os.Create(filepath.Join(dir, stem+"."+ext))
	if err != nil {
		return "", err
	}
	_, err = io.Copy(f, media_archiver.NewContextReader(ctx, stream))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to save stream: %w", err)
	}
	return ext, nil
}

func canonicalURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// selectFormat picks the tallest format with audio, preferring mp4 and then higher bitrate.
func selectFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var candidates []*youtube.Format
	for i := range formats {
		if formats[i].AudioChannels > 0 && formats[i].Height > 0 {
			candidates = append(candidates, &formats[i])
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoFormat
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if aMP4, bMP4 := extensionOf(a.MimeType) == "mp4", extensionOf(b.MimeType) == "mp4"; aMP4 != bMP4 {
			return aMP4
		}
		return a.Bitrate > b.Bitrate
	})
	return candidates[0], nil
}

// extensionOf turns e.g. `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into "mp4".
func extensionOf(mimeType string) string {
	mediaType := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}
	return "mp4"
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m|).youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m|).youtube.com/(v|shorts|embed)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(u *url.URL) (string, error) {
	var id string
	switch strings.ToLower(u.Hostname()) {
	case "www.youtube.com", "m.youtube.com", "youtube.com":
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(segments) >= 2 && (segments[0] == "v" || segments[0] == "shorts" || segments[0] == "embed"):
			id = segments[1]
		case u.Path == "/watch" || u.Path == "/details":
			if !u.Query().Has("v") {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
			id = u.Query().Get("v")
		}
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	return id, nil
}
